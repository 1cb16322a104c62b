package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

const operationColumns = `o.id, o.type, o.asset_id, o.from_user_id, o.to_user_id, o.qty, o.unit_price,
	o.timestamp, o.comment, o.photo, o.signed_by_user_id, o.signed_at, o.auto_signed,
	a.name AS asset_name`

const operationFrom = `FROM operations o JOIN assets a ON a.id = o.asset_id`

// AppendOperation records an operation. Signature fields on op are ignored:
// every operation starts unsigned.
func AppendOperation(ctx context.Context, db Queryer, op *model.Operation) (*model.Operation, error) {
	if op.Qty <= 0 {
		return nil, model.Invalid("operation qty must be positive, got %g", op.Qty)
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO operations (type, asset_id, from_user_id, to_user_id, qty, unit_price, timestamp, comment, photo)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.Type, op.AssetID, op.FromUserID, op.ToUserID, op.Qty, op.UnitPrice, op.Timestamp.UTC(), op.Comment, op.Photo,
	)
	if err != nil {
		return nil, fmt.Errorf("recording operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting operation id: %w", err)
	}

	return GetOperation(ctx, db, id)
}

// GetOperation returns an operation by ID.
func GetOperation(ctx context.Context, db Queryer, id int64) (*model.Operation, error) {
	op := &model.Operation{}
	err := sqlx.GetContext(ctx, db, op, `SELECT `+operationColumns+` `+operationFrom+` WHERE o.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "operation", id)
	}
	return op, nil
}

// OperationFilter narrows ListOperations. Zero values match everything.
type OperationFilter struct {
	AssetID int64
	UserID  int64 // matches either side of the operation
	Type    model.OperationType
	Limit   int
}

// ListOperations returns operations, newest first.
func ListOperations(ctx context.Context, db Queryer, f OperationFilter) ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` ` + operationFrom + ` WHERE 1=1`
	var args []any

	if f.AssetID > 0 {
		query += ` AND o.asset_id = ?`
		args = append(args, f.AssetID)
	}
	if f.UserID > 0 {
		query += ` AND (o.from_user_id = ? OR o.to_user_id = ?)`
		args = append(args, f.UserID, f.UserID)
	}
	if f.Type != "" {
		query += ` AND o.type = ?`
		args = append(args, f.Type)
	}

	query += ` ORDER BY o.timestamp DESC, o.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var ops []model.Operation
	if err := sqlx.SelectContext(ctx, db, &ops, query, args...); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// ListUnsignedCustody returns outgoing and transfer operations recorded at
// or before the cutoff whose recipient has not confirmed custody yet,
// oldest first.
func ListUnsignedCustody(ctx context.Context, db Queryer, before time.Time) ([]model.Operation, error) {
	var ops []model.Operation
	err := sqlx.SelectContext(ctx, db, &ops,
		`SELECT `+operationColumns+` `+operationFrom+`
		 WHERE o.type IN (?, ?) AND o.signed_at IS NULL AND o.to_user_id IS NOT NULL
		   AND o.timestamp <= ?
		 ORDER BY o.id`,
		model.OpOutgoing, model.OpTransfer, before.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing unsigned operations: %w", err)
	}
	return ops, nil
}

// SignOperation confirms custody on an operation. The update only applies
// while the operation is unsigned, so of two concurrent signers exactly one
// wins; signed reports whether this call was it.
func SignOperation(ctx context.Context, db Queryer, id, signerID int64, auto bool, at time.Time) (signed bool, err error) {
	res, err := db.ExecContext(ctx,
		`UPDATE operations SET signed_by_user_id = ?, signed_at = ?, auto_signed = ?
		 WHERE id = ? AND signed_at IS NULL`,
		signerID, at.UTC(), auto, id,
	)
	if err != nil {
		return false, fmt.Errorf("signing operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("signing operation: %w", err)
	}
	return n == 1, nil
}
