package messaging

import (
	"context"

	"github.com/mirrah-art/custody-ledger/internal/domain"
)

// Publisher defines the interface for publishing ledger events to a message
// broker. Publishing happens after commit and is best-effort; the journal is
// the source of truth.
type Publisher interface {
	// PublishEvent publishes a committed ledger event
	PublishEvent(ctx context.Context, event *domain.LedgerEvent) error
	// Close closes the connection
	Close()
}
