package schema

import (
	"time"
)

// Asset represents the assets table - one row per numbered piece of the
// edition. Rows are created once at seeding time and never inserted or
// deleted afterwards; every id in [0, totalSupply) has exactly one owner.
type Asset struct {
	// ID is the dense asset id, also the sale index on the price ladder
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Owner is the current owner address (the custody address until sold)
	Owner string `gorm:"column:owner;not null;type:text;index:idx_assets_owner"`
	// Stage is the production pipeline stage (0 = new .. 5 = finished)
	Stage int `gorm:"column:stage;not null;default:0"`
	// PendingRequester is set while a stage-change request awaits admin
	// confirmation; nil means no request is outstanding
	PendingRequester *string `gorm:"column:pending_requester;type:text"`
	// PendingCurrency records which registry slot paid the request fee
	PendingCurrency *int `gorm:"column:pending_currency"`
	// PendingFinal marks the outstanding request as a finalization request
	PendingFinal bool `gorm:"column:pending_final;not null;default:false"`
	// FinalDetails is the free-text note recorded at finalization
	FinalDetails string `gorm:"column:final_details;not null;default:'';type:text"`
	// CreatedAt is the seeding timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last state change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}
