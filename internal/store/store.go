package store

import (
	"context"

	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

// Store defines the interface for database operations. Getters return
// (nil, nil) when the row does not exist so callers decide which domain error
// applies.
type Store interface {
	// Transact runs fn against a transaction-scoped store. The transaction
	// commits iff fn returns nil; any error rolls back every write, which is
	// what gives ledger operations their all-or-nothing semantics.
	Transact(ctx context.Context, fn func(tx Store) error) error

	// GetEdition retrieves the single edition row
	GetEdition(ctx context.Context) (*schema.Edition, error)
	// UpdateEdition persists edition-level changes (cap, payees, policy)
	UpdateEdition(ctx context.Context, edition *schema.Edition) error

	// GetAsset retrieves an asset by id
	GetAsset(ctx context.Context, id uint64) (*schema.Asset, error)
	// GetAssetForUpdate retrieves an asset with a row lock; only meaningful
	// inside Transact
	GetAssetForUpdate(ctx context.Context, id uint64) (*schema.Asset, error)
	// UpdateAsset persists asset ownership and stage changes
	UpdateAsset(ctx context.Context, asset *schema.Asset) error
	// CountAssetsByOwner returns the number of assets held by an address
	CountAssetsByOwner(ctx context.Context, owner string) (int64, error)
	// ListAssets retrieves assets ordered by id, optionally filtered by owner
	ListAssets(ctx context.Context, owner *string, limit, offset int) ([]schema.Asset, error)

	// ListCurrencies retrieves the stablecoin registry ordered by slot index
	ListCurrencies(ctx context.Context) ([]schema.Currency, error)
	// ReplaceCurrencies atomically replaces the registry address list,
	// preserving slot indices
	ReplaceCurrencies(ctx context.Context, addresses []string) error

	// AppendJournal appends an audit row
	AppendJournal(ctx context.Context, entry *schema.LedgerJournal) error
	// ListJournal retrieves journal rows ordered by id, optionally filtered
	// by asset
	ListJournal(ctx context.Context, assetID *uint64, limit, offset int) ([]schema.LedgerJournal, error)
}
