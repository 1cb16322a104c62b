package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the kind of inventory-affecting action.
type OperationType string

// Operation types.
const (
	OpIncoming  OperationType = "incoming"
	OpOutgoing  OperationType = "outgoing"
	OpWriteOff  OperationType = "writeoff"
	OpInventory OperationType = "inventory"
	OpTransfer  OperationType = "transfer"
	OpReturn    OperationType = "return"
)

// NeedsCustodySignature reports whether operations of this type hand assets
// to a recipient who has to confirm custody.
func (t OperationType) NeedsCustodySignature() bool {
	return t == OpOutgoing || t == OpTransfer
}

// Operation is an append-only record of an inventory action. The signature
// fields are written once, by the recipient or by the auto-confirmation
// sweep.
type Operation struct {
	ID             int64               `json:"id" db:"id"`
	Type           OperationType       `json:"type" db:"type"`
	AssetID        int64               `json:"asset_id" db:"asset_id"`
	FromUserID     *int64              `json:"from_user_id,omitempty" db:"from_user_id"`
	ToUserID       *int64              `json:"to_user_id,omitempty" db:"to_user_id"`
	Qty            float64             `json:"qty" db:"qty"`
	UnitPrice      decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	Timestamp      time.Time           `json:"timestamp" db:"timestamp"`
	Comment        *string             `json:"comment,omitempty" db:"comment"`
	Photo          *string             `json:"photo,omitempty" db:"photo"`
	SignedByUserID *int64              `json:"signed_by_user_id,omitempty" db:"signed_by_user_id"`
	SignedAt       *time.Time          `json:"signed_at,omitempty" db:"signed_at"`
	AutoSigned     bool                `json:"auto_signed" db:"auto_signed"`

	// Joined fields (not always populated).
	AssetName string `json:"asset_name,omitempty" db:"asset_name"`
}

// Signed reports whether custody has been confirmed.
func (o *Operation) Signed() bool {
	return o.SignedAt != nil
}
