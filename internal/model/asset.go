package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetState is the lifecycle state of an asset or one of its instances.
type AssetState string

// Asset states.
const (
	AssetStateInStock    AssetState = "in_stock"
	AssetStateInUse      AssetState = "in_use"
	AssetStateWrittenOff AssetState = "written_off"
	AssetStateLost       AssetState = "lost"
	AssetStateReserved   AssetState = "reserved"
)

// Live reports whether an instance in this state still counts toward stock.
func (s AssetState) Live() bool {
	return s != AssetStateWrittenOff && s != AssetStateLost
}

// Category groups assets.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Asset is an asset definition. Qty is the warehouse-available count: live
// instances not assigned to anyone.
type Asset struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	CategoryID       *int64     `json:"category_id,omitempty" db:"category_id"`
	Code             *string    `json:"code,omitempty" db:"code"`
	Qty              float64    `json:"qty" db:"qty"`
	State            AssetState `json:"state" db:"state"`
	FirstIncomePhoto *string    `json:"first_income_photo,omitempty" db:"first_income_photo"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`

	// Joined fields (not always populated).
	CategoryName *string `json:"category_name,omitempty" db:"category_name"`
}

// AssetInstance is one individually tracked unit of an asset.
// AssignedToUserID is nil while the unit is in the warehouse.
type AssetInstance struct {
	ID               int64               `json:"id" db:"id"`
	AssetID          int64               `json:"asset_id" db:"asset_id"`
	Label            string              `json:"label" db:"label"`
	AssignedToUserID *int64              `json:"assigned_to_user_id,omitempty" db:"assigned_to_user_id"`
	Photo            *string             `json:"photo,omitempty" db:"photo"`
	UnitPrice        decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	State            AssetState          `json:"state" db:"state"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// InWarehouse reports whether the instance is physically in the warehouse.
func (i *AssetInstance) InWarehouse() bool {
	return i.AssignedToUserID == nil
}

// Holding is the number of instances of one asset held by a user.
type Holding struct {
	AssetID   int64  `json:"asset_id" db:"asset_id"`
	AssetName string `json:"asset_name" db:"asset_name"`
	Count     int    `json:"count" db:"count"`
}
