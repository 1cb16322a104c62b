package model

import "time"

// ReturnStatus is the state of a return request.
type ReturnStatus string

// Return statuses. Approved and rejected are terminal.
const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

// PendingReturn is a user's request to hand assets back to the warehouse.
type PendingReturn struct {
	ID               int64        `json:"id" db:"id"`
	FromUserID       int64        `json:"from_user_id" db:"from_user_id"`
	AssetID          int64        `json:"asset_id" db:"asset_id"`
	AssetName        string       `json:"asset_name" db:"asset_name"`
	Qty              float64      `json:"qty" db:"qty"`
	Status           ReturnStatus `json:"status" db:"status"`
	ResolvedByUserID *int64       `json:"resolved_by_user_id,omitempty" db:"resolved_by_user_id"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	ResolvedAt       *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ReturnPhoto is a photo a storekeeper attached when approving a return.
type ReturnPhoto struct {
	ID               int64     `json:"id" db:"id"`
	AssetID          int64     `json:"asset_id" db:"asset_id"`
	PendingReturnID  *int64    `json:"pending_return_id,omitempty" db:"pending_return_id"`
	Photo            string    `json:"photo" db:"photo"`
	UploadedByUserID *int64    `json:"uploaded_by_user_id,omitempty" db:"uploaded_by_user_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
