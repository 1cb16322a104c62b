// Package report summarizes warehouse stock per asset.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// Row is one asset in the report.
type Row struct {
	AssetID        int64               `json:"asset_id" db:"asset_id"`
	Name           string              `json:"name" db:"name"`
	Category       *string             `json:"category,omitempty" db:"category"`
	InStock        int                 `json:"in_stock" db:"in_stock"`
	Assigned       int                 `json:"assigned" db:"assigned"`
	LastPrice      decimal.NullDecimal `json:"last_price" db:"last_price"`
	HasIncomePhoto bool                `json:"has_income_photo" db:"has_income_photo"`
	ReturnPhotos   int                 `json:"return_photos" db:"return_photos"`
}

// Report is the stock of every asset plus totals.
type Report struct {
	Rows          []Row `json:"rows"`
	TotalInStock  int   `json:"total_in_stock"`
	TotalAssigned int   `json:"total_assigned"`
}

// Build reads the current stock. In stock counts unassigned instances in
// state in_stock; assigned counts every instance held by a user. The price
// is taken from the most recent incoming operation.
func Build(ctx context.Context, db store.Queryer) (*Report, error) {
	var rows []Row
	err := sqlx.SelectContext(ctx, db, &rows, `
		SELECT
		    a.id AS asset_id,
		    a.name,
		    c.name AS category,
		    (SELECT COUNT(*) FROM asset_instances i
		      WHERE i.asset_id = a.id AND i.assigned_to_user_id IS NULL AND i.state = ?) AS in_stock,
		    (SELECT COUNT(*) FROM asset_instances i
		      WHERE i.asset_id = a.id AND i.assigned_to_user_id IS NOT NULL) AS assigned,
		    (SELECT o.unit_price FROM operations o
		      WHERE o.asset_id = a.id AND o.type = ?
		      ORDER BY o.timestamp DESC, o.id DESC LIMIT 1) AS last_price,
		    a.first_income_photo IS NOT NULL AS has_income_photo,
		    (SELECT COUNT(*) FROM return_photos p WHERE p.asset_id = a.id) AS return_photos
		FROM assets a
		LEFT JOIN categories c ON c.id = a.category_id
		ORDER BY a.name, a.id`,
		model.AssetStateInStock, model.OpIncoming,
	)
	if err != nil {
		return nil, fmt.Errorf("building warehouse report: %w", err)
	}

	r := &Report{Rows: rows}
	for _, row := range rows {
		r.TotalInStock += row.InStock
		r.TotalAssigned += row.Assigned
	}
	return r, nil
}

// Write renders r as an aligned text table.
func Write(w io.Writer, r *Report) error {
	if len(r.Rows) == 0 {
		_, err := fmt.Fprintln(w, "Warehouse is empty.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "No\tName\tCategory\tIn stock\tAssigned\tPrice\tPhoto\tReturn photos")
	for i, row := range r.Rows {
		category := "-"
		if row.Category != nil {
			category = *row.Category
		}
		price := "-"
		if row.LastPrice.Valid {
			price = row.LastPrice.Decimal.StringFixed(2)
		}
		photo := "no"
		if row.HasIncomePhoto {
			photo = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%d\n",
			i+1, row.Name, category, row.InStock, row.Assigned, price, photo, row.ReturnPhotos)
	}
	fmt.Fprintf(tw, "Total\t\t\t%d\t%d\t\t\t\n", r.TotalInStock, r.TotalAssigned)
	return tw.Flush()
}
