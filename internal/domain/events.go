package domain

import "time"

// EventType identifies a committed ledger state change. Events are appended
// to the journal in the committing transaction and published to the message
// broker after commit.
type EventType string

const (
	EventTypePurchase         EventType = "purchase"
	EventTypeStageRequested   EventType = "stage_requested"
	EventTypeStageSet         EventType = "stage_set"
	EventTypeFinalRequested   EventType = "final_requested"
	EventTypeWithdrawal       EventType = "withdrawal"
	EventTypeSaleCapChanged   EventType = "sale_cap_changed"
	EventTypeRegistryReplaced EventType = "registry_replaced"
	EventTypePayeeChanged     EventType = "payee_changed"
)

// LedgerEvent is the normalized event emitted for every committed state
// change. AssetID is nil for edition-level events (cap, registry, payees,
// withdrawals).
type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AssetID   *uint64   `json:"asset_id,omitempty"`
	Actor     Address   `json:"actor"`
	Currency  *Address  `json:"currency,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Stage     *Stage    `json:"stage,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
