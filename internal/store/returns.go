package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

const returnColumns = `id, from_user_id, asset_id, asset_name, qty, status, resolved_by_user_id, created_at, resolved_at`

// CreatePendingReturn records a return request in pending status.
func CreatePendingReturn(ctx context.Context, db Queryer, fromUserID, assetID int64, assetName string, qty float64, at time.Time) (*model.PendingReturn, error) {
	if qty <= 0 {
		return nil, model.Invalid("return qty must be positive, got %g", qty)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO pending_returns (from_user_id, asset_id, asset_name, qty, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fromUserID, assetID, assetName, qty, model.ReturnPending, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pending return: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting pending return id: %w", err)
	}

	return GetPendingReturn(ctx, db, id)
}

// GetPendingReturn returns a return request by ID.
func GetPendingReturn(ctx context.Context, db Queryer, id int64) (*model.PendingReturn, error) {
	pr := &model.PendingReturn{}
	err := sqlx.GetContext(ctx, db, pr, `SELECT `+returnColumns+` FROM pending_returns WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "pending return", id)
	}
	return pr, nil
}

// ListPendingReturns returns return requests, optionally filtered by status
// and requesting user, oldest first.
func ListPendingReturns(ctx context.Context, db Queryer, status model.ReturnStatus, fromUserID int64) ([]model.PendingReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM pending_returns WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if fromUserID > 0 {
		query += ` AND from_user_id = ?`
		args = append(args, fromUserID)
	}
	query += ` ORDER BY id`

	var returns []model.PendingReturn
	if err := sqlx.SelectContext(ctx, db, &returns, query, args...); err != nil {
		return nil, fmt.Errorf("listing pending returns: %w", err)
	}
	return returns, nil
}

// ResolvePendingReturn moves a pending request to approved or rejected. It
// reports model.ErrAlreadyProcessed if the request was no longer pending.
func ResolvePendingReturn(ctx context.Context, db Queryer, id int64, status model.ReturnStatus, resolvedBy int64, at time.Time) error {
	if status != model.ReturnApproved && status != model.ReturnRejected {
		return model.Invalid("cannot resolve return to %q", status)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE pending_returns SET status = ?, resolved_by_user_id = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		status, resolvedBy, at.UTC(), id, model.ReturnPending,
	)
	if err != nil {
		return fmt.Errorf("resolving pending return: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pending return %d: %w", id, model.ErrAlreadyProcessed)
	}
	return nil
}

// AddReturnPhoto records a photo attached to an approved return.
func AddReturnPhoto(ctx context.Context, db Queryer, assetID int64, pendingReturnID *int64, photo string, uploadedBy int64) (*model.ReturnPhoto, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO return_photos (asset_id, pending_return_id, photo, uploaded_by_user_id) VALUES (?, ?, ?, ?)`,
		assetID, pendingReturnID, photo, uploadedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("recording return photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting return photo id: %w", err)
	}

	p := &model.ReturnPhoto{}
	err = sqlx.GetContext(ctx, db, p,
		`SELECT id, asset_id, pending_return_id, photo, uploaded_by_user_id, created_at FROM return_photos WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting return photo: %w", err)
	}
	return p, nil
}

// ListReturnPhotos returns the photos attached to returns of an asset.
func ListReturnPhotos(ctx context.Context, db Queryer, assetID int64) ([]model.ReturnPhoto, error) {
	var photos []model.ReturnPhoto
	err := sqlx.SelectContext(ctx, db, &photos,
		`SELECT id, asset_id, pending_return_id, photo, uploaded_by_user_id, created_at
		 FROM return_photos WHERE asset_id = ? ORDER BY id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("listing return photos: %w", err)
	}
	return photos, nil
}
