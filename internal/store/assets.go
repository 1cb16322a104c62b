package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

const assetColumns = `a.id, a.name, a.category_id, a.code, a.qty, a.state, a.first_income_photo,
	a.created_at, a.updated_at, c.name AS category_name`

const assetFrom = `FROM assets a LEFT JOIN categories c ON c.id = a.category_id`

// ResolveOrCreateAsset returns the asset registered under code, or creates a
// new asset with qty 0 when the code is empty or unknown. created reports
// which path was taken: an existing asset is a restock target.
func ResolveOrCreateAsset(ctx context.Context, db Queryer, code, name string, categoryID *int64) (asset *model.Asset, created bool, err error) {
	code = NormalizeName(code)
	name = NormalizeName(name)

	if code != "" {
		asset, err := GetAssetByCode(ctx, db, code)
		if err == nil {
			return asset, false, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, false, err
		}
	}

	if name == "" {
		return nil, false, model.Invalid("asset name required")
	}

	var codeArg *string
	if code != "" {
		codeArg = &code
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO assets (name, category_id, code, qty, state) VALUES (?, ?, ?, 0, ?)`,
		name, categoryID, codeArg, model.AssetStateInStock,
	)
	if isUniqueViolation(err) {
		return nil, false, fmt.Errorf("asset code %q: %w", code, model.ErrDuplicateName)
	}
	if err != nil {
		return nil, false, fmt.Errorf("creating asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("getting asset id: %w", err)
	}

	asset, err = GetAsset(ctx, db, id)
	return asset, true, err
}

// GetAsset returns an asset by ID.
func GetAsset(ctx context.Context, db Queryer, id int64) (*model.Asset, error) {
	a := &model.Asset{}
	err := sqlx.GetContext(ctx, db, a, `SELECT `+assetColumns+` `+assetFrom+` WHERE a.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}
	return a, nil
}

// GetAssetByCode returns an asset by its QR/barcode.
func GetAssetByCode(ctx context.Context, db Queryer, code string) (*model.Asset, error) {
	a := &model.Asset{}
	err := sqlx.GetContext(ctx, db, a, `SELECT `+assetColumns+` `+assetFrom+` WHERE a.code = ?`, code)
	if err != nil {
		return nil, notFound(err, "asset with code", code)
	}
	return a, nil
}

// ListAssets returns all assets, optionally filtered by category.
func ListAssets(ctx context.Context, db Queryer, categoryID int64) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + ` ` + assetFrom
	var args []any
	if categoryID > 0 {
		query += ` WHERE a.category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY a.name, a.id`

	var assets []model.Asset
	if err := sqlx.SelectContext(ctx, db, &assets, query, args...); err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return assets, nil
}

// IncrementAssetQty adds delta units to the asset's available quantity.
func IncrementAssetQty(ctx context.Context, db Queryer, id int64, delta float64) error {
	if delta <= 0 {
		return model.Invalid("qty increment must be positive, got %g", delta)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE assets SET qty = qty + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("incrementing asset qty: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// DecrementAssetQty removes delta units from the asset's available quantity.
// The update only applies while qty >= delta, so qty never goes negative;
// losing that race reports model.ErrConcurrencyConflict.
func DecrementAssetQty(ctx context.Context, db Queryer, id int64, delta float64) error {
	if delta <= 0 {
		return model.Invalid("qty decrement must be positive, got %g", delta)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE assets SET qty = qty - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND qty >= ?`,
		delta, id, delta,
	)
	if err != nil {
		return fmt.Errorf("decrementing asset qty: %w", err)
	}
	return expectRows(res, 1, "decrementing asset qty")
}

// SetFirstIncomePhoto records the photo of the first delivery of an asset.
// Later deliveries keep the original.
func SetFirstIncomePhoto(ctx context.Context, db Queryer, id int64, photo string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE assets SET first_income_photo = ? WHERE id = ? AND first_income_photo IS NULL`,
		photo, id,
	)
	if err != nil {
		return fmt.Errorf("setting income photo: %w", err)
	}
	return nil
}

// SyncAssetState derives the asset's state from its instances: in stock
// while anything is available, in use while units are only held by users,
// written off once no live unit is left.
func SyncAssetState(ctx context.Context, db Queryer, id int64) error {
	var counts struct {
		Available int `db:"available"`
		Assigned  int `db:"assigned"`
	}
	err := sqlx.GetContext(ctx, db, &counts,
		`SELECT
		     COALESCE(SUM(CASE WHEN assigned_to_user_id IS NULL AND state NOT IN ('written_off', 'lost') THEN 1 ELSE 0 END), 0) AS available,
		     COALESCE(SUM(CASE WHEN assigned_to_user_id IS NOT NULL AND state NOT IN ('written_off', 'lost') THEN 1 ELSE 0 END), 0) AS assigned
		 FROM asset_instances WHERE asset_id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("counting asset instances: %w", err)
	}

	state := model.AssetStateInStock
	switch {
	case counts.Available > 0:
		state = model.AssetStateInStock
	case counts.Assigned > 0:
		state = model.AssetStateInUse
	default:
		var total int
		if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*) FROM asset_instances WHERE asset_id = ?`, id); err != nil {
			return fmt.Errorf("counting asset instances: %w", err)
		}
		if total > 0 {
			state = model.AssetStateWrittenOff
		}
	}

	if _, err := db.ExecContext(ctx, `UPDATE assets SET state = ? WHERE id = ?`, state, id); err != nil {
		return fmt.Errorf("updating asset state: %w", err)
	}
	return nil
}
