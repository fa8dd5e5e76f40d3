// Package ledger implements the custody ledger core: asset ownership, the
// incrementing sale ladder, the production stage machine with its
// request/confirm protocol, and treasury withdrawal.
//
// Every mutating operation runs inside a single database transaction, so an
// operation either fully applies or leaves no trace. Asset rows are locked
// for update inside the transaction, which makes the per-asset pending flag a
// reliable logical lock across the two-step request/confirm protocol.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/logger"
	"github.com/mirrah-art/custody-ledger/internal/messaging"
	"github.com/mirrah-art/custody-ledger/internal/metadata"
	"github.com/mirrah-art/custody-ledger/internal/stable"
	"github.com/mirrah-art/custody-ledger/internal/store"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

// Engine executes ledger operations against the store and the fungible asset
// adapter. Caller identity is passed explicitly; role checks happen here,
// against the role addresses stored on the edition row.
type Engine struct {
	store     store.Store
	stables   stable.Resolver
	publisher messaging.Publisher
}

// New creates a ledger engine. publisher may be nil; events are then only
// journaled.
func New(s store.Store, stables stable.Resolver, publisher messaging.Publisher) *Engine {
	return &Engine{store: s, stables: stables, publisher: publisher}
}

// OwnerOf returns the current owner of an asset
func (e *Engine) OwnerOf(ctx context.Context, id uint64) (domain.Address, error) {
	asset, err := e.store.GetAsset(ctx, id)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", domain.ErrNotFound
	}
	return domain.Address(asset.Owner), nil
}

// BalanceOf returns the number of assets held by an account
func (e *Engine) BalanceOf(ctx context.Context, account domain.Address) (int64, error) {
	return e.store.CountAssetsByOwner(ctx, string(account.Normalized()))
}

// Prices returns the sale ladder parameters
func (e *Engine) Prices(ctx context.Context) (domain.Prices, error) {
	edition, err := e.requireEdition(ctx, e.store)
	if err != nil {
		return domain.Prices{}, err
	}
	return domain.Prices{
		InitialPrice:   edition.InitialPrice,
		PriceIncrement: edition.PriceIncrement,
	}, nil
}

// TokenForCurrency returns the registered stablecoin address for a registry
// slot
func (e *Engine) TokenForCurrency(ctx context.Context, index domain.CurrencyIndex) (domain.Address, error) {
	currency, err := e.currencyAt(ctx, e.store, index)
	if err != nil {
		return "", err
	}
	return domain.Address(currency.Address), nil
}

// Currencies returns the full currency registry in slot order
func (e *Engine) Currencies(ctx context.Context) ([]domain.Address, error) {
	currencies, err := e.store.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	addresses := make([]domain.Address, 0, len(currencies))
	for _, currency := range currencies {
		addresses = append(addresses, domain.Address(currency.Address))
	}
	return addresses, nil
}

// NFTDetails returns the production read model for an asset
func (e *Engine) NFTDetails(ctx context.Context, id uint64) (*domain.AssetDetails, error) {
	asset, err := e.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, domain.ErrNotFound
	}
	return assetDetails(asset), nil
}

// TokenURI returns the metadata location for an asset
func (e *Engine) TokenURI(ctx context.Context, id uint64) (string, error) {
	edition, err := e.requireEdition(ctx, e.store)
	if err != nil {
		return "", err
	}
	if id >= edition.TotalSupply {
		return "", domain.ErrNotFound
	}
	return metadata.TokenURI(edition.BaseURI, id), nil
}

// ListAssets returns assets ordered by id, optionally filtered by owner
func (e *Engine) ListAssets(ctx context.Context, owner *domain.Address, limit, offset int) ([]domain.AssetDetails, error) {
	var ownerFilter *string
	if owner != nil {
		normalized := string(owner.Normalized())
		ownerFilter = &normalized
	}
	assets, err := e.store.ListAssets(ctx, ownerFilter, limit, offset)
	if err != nil {
		return nil, err
	}
	details := make([]domain.AssetDetails, 0, len(assets))
	for i := range assets {
		details = append(details, *assetDetails(&assets[i]))
	}
	return details, nil
}

// Journal returns committed ledger events, optionally filtered by asset
func (e *Engine) Journal(ctx context.Context, assetID *uint64, limit, offset int) ([]schema.LedgerJournal, error) {
	return e.store.ListJournal(ctx, assetID, limit, offset)
}

// TreasuryBalance returns the custody balance of a registered currency
func (e *Engine) TreasuryBalance(ctx context.Context, index domain.CurrencyIndex) (*big.Int, error) {
	edition, err := e.requireEdition(ctx, e.store)
	if err != nil {
		return nil, err
	}
	currency, err := e.currencyAt(ctx, e.store, index)
	if err != nil {
		return nil, err
	}
	token, err := e.stables.Token(domain.Address(currency.Address))
	if err != nil {
		return nil, err
	}
	return token.BalanceOf(ctx, domain.Address(edition.CustodyAddress))
}

// BuyFromContract sells the asset at saleIndex to caller, paid in the chosen
// registry currency. The full price, scaled to the currency's decimals, is
// pulled from the caller's pre-authorized allowance into custody before
// ownership moves.
func (e *Engine) BuyFromContract(ctx context.Context, caller domain.Address, saleIndex uint64, currency domain.CurrencyIndex) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if saleIndex >= edition.MaxSaleIndex {
			return domain.ErrNotForSale
		}

		token, _, err := e.tokenAt(ctx, tx, currency)
		if err != nil {
			return err
		}

		asset, err := tx.GetAssetForUpdate(ctx, saleIndex)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.ErrNotFound
		}
		custody := domain.Address(edition.CustodyAddress)
		if !domain.Address(asset.Owner).Equal(custody) {
			// already sold
			return domain.ErrNotOwner
		}

		decimals, err := token.Decimals(ctx)
		if err != nil {
			return err
		}
		prices := domain.Prices{InitialPrice: edition.InitialPrice, PriceIncrement: edition.PriceIncrement}
		amount := domain.ScaleToDecimals(prices.For(saleIndex), decimals)

		if err := ensureFunds(ctx, token, caller, custody, amount); err != nil {
			return err
		}
		// adapter errors (allowance, balance) propagate unmodified
		if err := token.TransferFrom(ctx, caller, custody, amount); err != nil {
			return err
		}

		asset.Owner = string(caller.Normalized())
		if err := tx.UpdateAsset(ctx, asset); err != nil {
			return err
		}

		tokenAddr := token.Address()
		event = newEvent(domain.EventTypePurchase, caller, &saleIndex)
		event.Currency = &tokenAddr
		event.Amount = amount.String()
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// SetMaxSaleIndex updates the sale cap; admin or owner only
func (e *Engine) SetMaxSaleIndex(ctx context.Context, caller domain.Address, cap uint64) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireRole(edition, caller, roleAdminOrOwner); err != nil {
			return err
		}

		edition.MaxSaleIndex = cap
		if err := tx.UpdateEdition(ctx, edition); err != nil {
			return err
		}

		event = newEvent(domain.EventTypeSaleCapChanged, caller, nil)
		event.Details = fmt.Sprintf("max sale index set to %d", cap)
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// RequestStateUpdate records a customer's request to advance an asset to its
// next production stage. The asset is then locked until an admin confirms via
// SetNftStage; a second request before that fails with ErrWorkInProgress.
func (e *Engine) RequestStateUpdate(ctx context.Context, caller domain.Address, id uint64, currency domain.CurrencyIndex) error {
	return e.requestStage(ctx, caller, id, currency, false, false, "")
}

// RequestFinalStage is the distinguished transition into the finished stage.
// approved completes the lifecycle immediately; otherwise the request and the
// note are recorded for admin review with no stage change.
func (e *Engine) RequestFinalStage(ctx context.Context, caller domain.Address, id uint64, currency domain.CurrencyIndex, approved bool, details string) error {
	return e.requestStage(ctx, caller, id, currency, true, approved, details)
}

func (e *Engine) requestStage(ctx context.Context, caller domain.Address, id uint64, currency domain.CurrencyIndex, final, approved bool, details string) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}

		asset, err := tx.GetAssetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.ErrNotFound
		}
		if asset.PendingRequester != nil {
			return domain.ErrWorkInProgress
		}

		token, _, err := e.tokenAt(ctx, tx, currency)
		if err != nil {
			return err
		}

		fee := big.NewInt(0)
		if edition.StageFee > 0 {
			decimals, err := token.Decimals(ctx)
			if err != nil {
				return err
			}
			fee = domain.ScaleToDecimals(edition.StageFee, decimals)
			custody := domain.Address(edition.CustodyAddress)
			if err := ensureFunds(ctx, token, caller, custody, fee); err != nil {
				return err
			}
			if err := token.TransferFrom(ctx, caller, custody, fee); err != nil {
				return err
			}
		}

		requester := string(caller.Normalized())
		currencyIdx := int(currency)
		asset.PendingRequester = &requester
		asset.PendingCurrency = &currencyIdx
		asset.PendingFinal = final

		eventType := domain.EventTypeStageRequested
		if final {
			eventType = domain.EventTypeFinalRequested
			asset.FinalDetails = details
			if approved {
				asset.Stage = int(domain.StageFinished)
				asset.PendingRequester = nil
				asset.PendingCurrency = nil
				asset.PendingFinal = false
			}
		}
		if err := tx.UpdateAsset(ctx, asset); err != nil {
			return err
		}

		tokenAddr := token.Address()
		event = newEvent(eventType, caller, &id)
		event.Currency = &tokenAddr
		event.Amount = fee.String()
		event.Details = details
		if final && approved {
			finished := domain.StageFinished
			event.Stage = &finished
		}
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// SetNftStage is the admin half of the request/confirm protocol: it assigns
// the asset's stage and releases the pending lock. Stages never regress;
// jumping forward more than one step requires the edition's stage-skip policy.
func (e *Engine) SetNftStage(ctx context.Context, caller domain.Address, id uint64, stage domain.Stage) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireRole(edition, caller, roleAdminOrOwner); err != nil {
			return err
		}

		asset, err := tx.GetAssetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.ErrNotFound
		}

		if !stage.Valid() {
			return domain.ErrInvalidStage
		}
		current := domain.Stage(asset.Stage)
		if stage < current {
			return domain.ErrInvalidStage
		}
		if stage > current+1 && !edition.AllowStageSkip {
			return domain.ErrInvalidStage
		}

		asset.Stage = int(stage)
		asset.PendingRequester = nil
		asset.PendingCurrency = nil
		asset.PendingFinal = false
		if err := tx.UpdateAsset(ctx, asset); err != nil {
			return err
		}

		event = newEvent(domain.EventTypeStageSet, caller, &id)
		event.Stage = &stage
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// SetArtistAddress reassigns the artist payee; owner only
func (e *Engine) SetArtistAddress(ctx context.Context, caller, artist domain.Address) error {
	return e.setPayee(ctx, caller, artist, func(edition *schema.Edition, addr string) {
		edition.ArtistAddress = addr
	})
}

// SetDeveloperAddress reassigns the developer payee; owner only
func (e *Engine) SetDeveloperAddress(ctx context.Context, caller, developer domain.Address) error {
	return e.setPayee(ctx, caller, developer, func(edition *schema.Edition, addr string) {
		edition.DeveloperAddress = addr
	})
}

func (e *Engine) setPayee(ctx context.Context, caller, payee domain.Address, assign func(*schema.Edition, string)) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireRole(edition, caller, roleOwner); err != nil {
			return err
		}
		if !payee.Valid() {
			return fmt.Errorf("invalid payee address %q", payee)
		}

		assign(edition, string(payee.Normalized()))
		if err := tx.UpdateEdition(ctx, edition); err != nil {
			return err
		}

		event = newEvent(domain.EventTypePayeeChanged, caller, nil)
		event.Details = string(payee.Normalized())
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// SetStablesAddress atomically replaces the whole currency registry; owner
// only. The list length must match the registry's arity.
func (e *Engine) SetStablesAddress(ctx context.Context, caller domain.Address, addresses []domain.Address) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireRole(edition, caller, roleOwner); err != nil {
			return err
		}

		current, err := tx.ListCurrencies(ctx)
		if err != nil {
			return err
		}
		if len(addresses) != len(current) {
			return domain.ErrArityMismatch
		}

		normalized := make([]string, 0, len(addresses))
		for _, addr := range addresses {
			if !addr.Valid() {
				return fmt.Errorf("invalid currency address %q", addr)
			}
			normalized = append(normalized, string(addr.Normalized()))
		}
		if err := tx.ReplaceCurrencies(ctx, normalized); err != nil {
			return err
		}

		event = newEvent(domain.EventTypeRegistryReplaced, caller, nil)
		event.Details = fmt.Sprintf("registry replaced, arity %d", len(normalized))
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// WithdrawAllOfToken splits the custody balance of the given token between
// the artist and developer payees; admin or owner only. The two transfers sum
// to exactly the pre-withdrawal balance.
func (e *Engine) WithdrawAllOfToken(ctx context.Context, caller, tokenAddress domain.Address) error {
	var event *domain.LedgerEvent

	err := e.store.Transact(ctx, func(tx store.Store) error {
		edition, err := e.requireEdition(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireRole(edition, caller, roleAdminOrOwner); err != nil {
			return err
		}

		token, err := e.stables.Token(tokenAddress)
		if err != nil {
			return err
		}
		custody := domain.Address(edition.CustodyAddress)
		balance, err := token.BalanceOf(ctx, custody)
		if err != nil {
			return err
		}

		artistAmount, developerAmount := splitBalance(balance, edition.ArtistShareBps)
		if artistAmount.Sign() > 0 {
			if err := token.Transfer(ctx, domain.Address(edition.ArtistAddress), artistAmount); err != nil {
				return err
			}
		}
		if developerAmount.Sign() > 0 {
			if err := token.Transfer(ctx, domain.Address(edition.DeveloperAddress), developerAmount); err != nil {
				return err
			}
		}

		tokenAddr := token.Address()
		event = newEvent(domain.EventTypeWithdrawal, caller, nil)
		event.Currency = &tokenAddr
		event.Amount = balance.String()
		event.Details = fmt.Sprintf("artist %s, developer %s", artistAmount, developerAmount)
		return appendJournal(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	e.publish(ctx, event)
	return nil
}

// splitBalance divides a balance by the artist's basis-point share; the
// developer receives the exact remainder so the two parts always sum to the
// whole
func splitBalance(balance *big.Int, artistShareBps uint64) (artist, developer *big.Int) {
	artist = new(big.Int).Mul(balance, new(big.Int).SetUint64(artistShareBps))
	artist.Div(artist, big.NewInt(10000))
	developer = new(big.Int).Sub(balance, artist)
	return artist, developer
}

// ensureFunds checks allowance and balance before the pull so payment
// failures surface as domain errors regardless of the adapter's own error
// shape. An on-chain transfer can still lose the race against a concurrent
// spend; the adapter error then propagates as-is.
func ensureFunds(ctx context.Context, token stable.Token, payer, spender domain.Address, amount *big.Int) error {
	allowance, err := token.Allowance(ctx, payer, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}
	balance, err := token.BalanceOf(ctx, payer)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (e *Engine) requireEdition(ctx context.Context, s store.Store) (*schema.Edition, error) {
	edition, err := s.GetEdition(ctx)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, fmt.Errorf("edition not seeded")
	}
	return edition, nil
}

func (e *Engine) currencyAt(ctx context.Context, s store.Store, index domain.CurrencyIndex) (*schema.Currency, error) {
	currencies, err := s.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || int(index) >= len(currencies) {
		return nil, domain.ErrUnknownCurrency
	}
	return &currencies[index], nil
}

func (e *Engine) tokenAt(ctx context.Context, s store.Store, index domain.CurrencyIndex) (stable.Token, *schema.Currency, error) {
	currency, err := e.currencyAt(ctx, s, index)
	if err != nil {
		return nil, nil, err
	}
	token, err := e.stables.Token(domain.Address(currency.Address))
	if err != nil {
		return nil, nil, err
	}
	return token, currency, nil
}

func (e *Engine) publish(ctx context.Context, event *domain.LedgerEvent) {
	if e.publisher == nil || event == nil {
		return
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}

func assetDetails(asset *schema.Asset) *domain.AssetDetails {
	details := &domain.AssetDetails{
		ID:           asset.ID,
		Owner:        domain.Address(asset.Owner),
		Stage:        domain.Stage(asset.Stage),
		FinalDetails: asset.FinalDetails,
	}
	if asset.PendingRequester != nil {
		pending := &domain.PendingRequest{
			Requester: domain.Address(*asset.PendingRequester),
			Final:     asset.PendingFinal,
		}
		if asset.PendingCurrency != nil {
			pending.Currency = domain.CurrencyIndex(*asset.PendingCurrency)
		}
		details.Pending = pending
	}
	return details
}
