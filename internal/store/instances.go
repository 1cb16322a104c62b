package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

// AutoLabelPrefix starts every generated instance label.
const AutoLabelPrefix = "Item #"

var autoLabelRe = regexp.MustCompile(`^Item #(\d+)$`)

const instanceColumns = `id, asset_id, label, assigned_to_user_id, photo, unit_price, state, created_at, updated_at`

// NewInstance describes one unit to create. Empty fields are left unset; an
// empty Label gets the next generated "Item #N".
type NewInstance struct {
	Label     string
	Photo     string
	UnitPrice decimal.NullDecimal
}

// BatchInstances expands per-batch input into n instance descriptions.
// labels, photos and prices may each be empty, hold one value for the whole
// batch (photos and prices only), or hold exactly n values.
func BatchInstances(n int, labels, photos []string, prices []decimal.NullDecimal) ([]NewInstance, error) {
	if n <= 0 {
		return nil, model.Invalid("instance count must be positive, got %d", n)
	}
	if len(labels) != 0 && len(labels) != n {
		return nil, model.Invalid("got %d labels for %d instances", len(labels), n)
	}
	if len(photos) > 1 && len(photos) != n {
		return nil, model.Invalid("got %d photos for %d instances", len(photos), n)
	}
	if len(prices) > 1 && len(prices) != n {
		return nil, model.Invalid("got %d prices for %d instances", len(prices), n)
	}

	out := make([]NewInstance, n)
	for i := range out {
		if len(labels) == n {
			out[i].Label = strings.TrimSpace(labels[i])
		}
		switch len(photos) {
		case 1:
			out[i].Photo = photos[0]
		case n:
			out[i].Photo = photos[i]
		}
		switch len(prices) {
		case 1:
			out[i].UnitPrice = prices[0]
		case n:
			out[i].UnitPrice = prices[i]
		}
		if out[i].UnitPrice.Valid && out[i].UnitPrice.Decimal.IsNegative() {
			return nil, model.Invalid("unit price must not be negative")
		}
	}
	return out, nil
}

// MaxAutoLabelIndex returns the highest N among the asset's "Item #N"
// labels, or 0. Other labels are ignored.
func MaxAutoLabelIndex(ctx context.Context, db Queryer, assetID int64) (int, error) {
	var labels []string
	err := sqlx.SelectContext(ctx, db, &labels,
		`SELECT label FROM asset_instances WHERE asset_id = ? AND label LIKE ?`,
		assetID, AutoLabelPrefix+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("listing instance labels: %w", err)
	}

	highest := 0
	for _, l := range labels {
		m := autoLabelRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// CreateInstances creates the given units of an asset in the warehouse:
// unassigned and in stock. Units without a label are numbered on from the
// asset's highest existing "Item #N".
func CreateInstances(ctx context.Context, db Queryer, assetID int64, units []NewInstance) ([]model.AssetInstance, error) {
	if len(units) == 0 {
		return nil, model.Invalid("no instances to create")
	}

	next, err := MaxAutoLabelIndex(ctx, db, assetID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(units))
	for _, u := range units {
		label := u.Label
		if label == "" {
			next++
			label = AutoLabelPrefix + strconv.Itoa(next)
		}

		var photo *string
		if u.Photo != "" {
			photo = &u.Photo
		}

		result, err := db.ExecContext(ctx,
			`INSERT INTO asset_instances (asset_id, label, photo, unit_price, state) VALUES (?, ?, ?, ?, ?)`,
			assetID, label, photo, u.UnitPrice, model.AssetStateInStock,
		)
		if err != nil {
			return nil, fmt.Errorf("creating instance: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting instance id: %w", err)
		}
		ids = append(ids, id)
	}

	return getInstances(ctx, db, ids)
}

func getInstances(ctx context.Context, db Queryer, ids []int64) ([]model.AssetInstance, error) {
	query, args, err := sqlx.In(`SELECT `+instanceColumns+` FROM asset_instances WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("building instance query: %w", err)
	}

	var instances []model.AssetInstance
	if err := sqlx.SelectContext(ctx, db, &instances, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("getting instances: %w", err)
	}
	return instances, nil
}

// GetInstance returns an instance by ID.
func GetInstance(ctx context.Context, db Queryer, id int64) (*model.AssetInstance, error) {
	inst := &model.AssetInstance{}
	err := sqlx.GetContext(ctx, db, inst, `SELECT `+instanceColumns+` FROM asset_instances WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "instance", id)
	}
	return inst, nil
}

// ListInstances returns every instance of an asset in creation order.
func ListInstances(ctx context.Context, db Queryer, assetID int64) ([]model.AssetInstance, error) {
	var instances []model.AssetInstance
	err := sqlx.SelectContext(ctx, db, &instances,
		`SELECT `+instanceColumns+` FROM asset_instances WHERE asset_id = ? ORDER BY id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return instances, nil
}

// ListAvailable returns the asset's live instances that are in the
// warehouse, in creation order. limit <= 0 means no limit.
//
// Callers that go on to assign the result must do so in the same
// transaction.
func ListAvailable(ctx context.Context, db Queryer, assetID int64, limit int) ([]model.AssetInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM asset_instances
	          WHERE asset_id = ? AND assigned_to_user_id IS NULL AND state NOT IN ('written_off', 'lost')
	          ORDER BY id`
	args := []any{assetID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var instances []model.AssetInstance
	if err := sqlx.SelectContext(ctx, db, &instances, query, args...); err != nil {
		return nil, fmt.Errorf("listing available instances: %w", err)
	}
	return instances, nil
}

// CountAvailable returns how many live instances of the asset are in the
// warehouse.
func CountAvailable(ctx context.Context, db Queryer, assetID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n,
		`SELECT COUNT(*) FROM asset_instances
		 WHERE asset_id = ? AND assigned_to_user_id IS NULL AND state NOT IN ('written_off', 'lost')`,
		assetID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting available instances: %w", err)
	}
	return n, nil
}

// ListAssignedTo returns the instances a user holds, in creation order.
// assetID 0 means all assets.
func ListAssignedTo(ctx context.Context, db Queryer, userID, assetID int64) ([]model.AssetInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM asset_instances WHERE assigned_to_user_id = ?`
	args := []any{userID}
	if assetID > 0 {
		query += ` AND asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY id`

	var instances []model.AssetInstance
	if err := sqlx.SelectContext(ctx, db, &instances, query, args...); err != nil {
		return nil, fmt.Errorf("listing assigned instances: %w", err)
	}
	return instances, nil
}

// CountHeld returns how many instances of the asset a user holds.
func CountHeld(ctx context.Context, db Queryer, userID, assetID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n,
		`SELECT COUNT(*) FROM asset_instances WHERE assigned_to_user_id = ? AND asset_id = ?`,
		userID, assetID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting held instances: %w", err)
	}
	return n, nil
}

// HoldingsByUser returns per-asset counts of what a user holds.
func HoldingsByUser(ctx context.Context, db Queryer, userID int64) ([]model.Holding, error) {
	var holdings []model.Holding
	err := sqlx.SelectContext(ctx, db, &holdings,
		`SELECT i.asset_id, a.name AS asset_name, COUNT(*) AS count
		 FROM asset_instances i
		 JOIN assets a ON a.id = i.asset_id
		 WHERE i.assigned_to_user_id = ?
		 GROUP BY i.asset_id, a.name
		 ORDER BY a.name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	return holdings, nil
}

// Reassign moves one instance to a user (or to the warehouse when userID is
// nil) and sets its state.
func Reassign(ctx context.Context, db Queryer, instanceID int64, userID *int64, state model.AssetState) error {
	res, err := db.ExecContext(ctx,
		`UPDATE asset_instances SET assigned_to_user_id = ?, state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID, state, instanceID,
	)
	if err != nil {
		return fmt.Errorf("reassigning instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("instance %d: %w", instanceID, model.ErrNotFound)
	}
	return nil
}

// ReassignBatch moves instances from one holder to another (nil is the
// warehouse). Each row only moves if it is still with from; if any has moved
// meanwhile the whole call reports model.ErrConcurrencyConflict and the
// caller's transaction must be rolled back.
func ReassignBatch(ctx context.Context, db Queryer, ids []int64, from, to *int64, state model.AssetState) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`UPDATE asset_instances SET assigned_to_user_id = ?, state = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (?) AND assigned_to_user_id IS ?`,
		to, state, ids, from,
	)
	if err != nil {
		return fmt.Errorf("building reassign query: %w", err)
	}

	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("reassigning instances: %w", err)
	}
	return expectRows(res, int64(len(ids)), "reassigning instances")
}

// InstanceIDs returns the IDs of the given instances.
func InstanceIDs(instances []model.AssetInstance) []int64 {
	ids := make([]int64, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}
