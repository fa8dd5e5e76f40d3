package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerJournal represents the ledger_journals table - a sequential audit log
// of committed state changes. Rows are appended in the same transaction as
// the change they record, so the journal never references a rolled-back
// mutation.
type LedgerJournal struct {
	// ID is a ULID, which sorts lexicographically by creation time
	ID string `gorm:"column:id;primaryKey;type:text"`
	// EventType identifies the kind of state change
	EventType string `gorm:"column:event_type;not null;type:text;index:idx_journal_event_type"`
	// AssetID is set for asset-level events, nil for edition-level ones
	AssetID *uint64 `gorm:"column:asset_id;index:idx_journal_asset"`
	// Actor is the address whose call produced the change
	Actor string `gorm:"column:actor;not null;type:text"`
	// Payload carries the full serialized event
	Payload datatypes.JSON `gorm:"column:payload;not null"`
	// CreatedAt is the commit timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LedgerJournal model
func (LedgerJournal) TableName() string {
	return "ledger_journals"
}
