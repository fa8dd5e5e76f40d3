package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/store"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

func newEvent(eventType domain.EventType, actor domain.Address, assetID *uint64) *domain.LedgerEvent {
	return &domain.LedgerEvent{
		ID:        ulid.Make().String(),
		Type:      eventType,
		AssetID:   assetID,
		Actor:     actor.Normalized(),
		Timestamp: time.Now().UTC(),
	}
}

// appendJournal records the event inside the committing transaction, so the
// audit log and the state change land together or not at all
func appendJournal(ctx context.Context, tx store.Store, event *domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return tx.AppendJournal(ctx, &schema.LedgerJournal{
		ID:        event.ID,
		EventType: string(event.Type),
		AssetID:   event.AssetID,
		Actor:     string(event.Actor),
		Payload:   payload,
		CreatedAt: event.Timestamp,
	})
}
