package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/stable"
	"github.com/mirrah-art/custody-ledger/internal/store"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

const (
	ownerAddr     = domain.Address("0x1000000000000000000000000000000000000001")
	adminAddr     = domain.Address("0x1000000000000000000000000000000000000011")
	artistAddr    = domain.Address("0x1000000000000000000000000000000000000111")
	developerAddr = domain.Address("0x1000000000000000000000000000000001111111")
	custodyAddr   = domain.Address("0x2000000000000000000000000000000000000002")
	buyerAddr     = domain.Address("0x3000000000000000000000000000000000000003")
	buyer2Addr    = domain.Address("0x3000000000000000000000000000000000000033")

	usdcAddr = domain.Address("0xa000000000000000000000000000000000000001")
	daiAddr  = domain.Address("0xa000000000000000000000000000000000000002")
	usdtAddr = domain.Address("0xa000000000000000000000000000000000000003")
)

// capturePublisher records published events for assertions
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.LedgerEvent
}

func (p *capturePublisher) PublishEvent(ctx context.Context, event *domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type fixture struct {
	engine    *Engine
	store     store.Store
	usdc      *stable.MemoryToken
	dai       *stable.MemoryToken
	usdt      *stable.MemoryToken
	published *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()

	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)
	t.Cleanup(func() {
		tx.Rollback()
	})

	require.NoError(t, store.Seed(ctx, tx, schema.Edition{
		TotalSupply:      30,
		InitialPrice:     1000,
		PriceIncrement:   100,
		MaxSaleIndex:     5,
		StageFee:         100,
		ArtistShareBps:   5000,
		AllowStageSkip:   false,
		BaseURI:          "https://s.nft.mirrah.art/one/metadata",
		OwnerAddress:     string(ownerAddr.Normalized()),
		AdminAddress:     string(adminAddr.Normalized()),
		ArtistAddress:    string(artistAddr.Normalized()),
		DeveloperAddress: string(developerAddr.Normalized()),
		CustodyAddress:   string(custodyAddr.Normalized()),
	}, []string{
		string(usdcAddr.Normalized()),
		string(daiAddr.Normalized()),
		string(usdtAddr.Normalized()),
	}))

	// decimals mirror the USDC/DAI/USDT production registry
	usdc := stable.NewMemoryToken(usdcAddr, 6)
	dai := stable.NewMemoryToken(daiAddr, 18)
	usdt := stable.NewMemoryToken(usdtAddr, 6)
	resolver := stable.NewMemoryResolver(custodyAddr)
	resolver.Register(usdc)
	resolver.Register(dai)
	resolver.Register(usdt)

	published := &capturePublisher{}
	dataStore := store.NewPGStore(tx)
	return &fixture{
		engine:    New(dataStore, resolver, published),
		store:     dataStore,
		usdc:      usdc,
		dai:       dai,
		usdt:      usdt,
		published: published,
	}
}

// fund mints whole units to an account and approves custody to pull them
func fund(t *testing.T, token *stable.MemoryToken, account domain.Address, wholeUnits uint64) {
	decimals, err := token.Decimals(context.Background())
	require.NoError(t, err)
	amount := domain.ScaleToDecimals(wholeUnits, decimals)
	token.Mint(account, amount)
	token.Approve(account, custodyAddr, amount)
}

func TestBuyAcrossCurrencies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1000)
	fund(t, f.dai, buyerAddr, 1100)
	fund(t, f.usdt, buyer2Addr, 1200)

	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 1, 1))
	require.NoError(t, f.engine.BuyFromContract(ctx, buyer2Addr, 2, 2))

	owner, err := f.engine.OwnerOf(ctx, 0)
	require.NoError(t, err)
	assert.True(t, owner.Equal(buyerAddr))

	balance, err := f.engine.BalanceOf(ctx, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	// the full ladder price landed in custody, scaled per currency
	custodyUSDC, err := f.usdc.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.ScaleToDecimals(1000, 6), custodyUSDC)

	custodyDAI, err := f.dai.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.ScaleToDecimals(1100, 18), custodyDAI)

	custodyUSDT, err := f.usdt.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.ScaleToDecimals(1200, 6), custodyUSDT)

	assert.Equal(t, []domain.EventType{
		domain.EventTypePurchase,
		domain.EventTypePurchase,
		domain.EventTypePurchase,
	}, f.published.types())
}

func TestBuyAlreadySold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1000)
	fund(t, f.usdc, buyer2Addr, 1000)

	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))

	err := f.engine.BuyFromContract(ctx, buyer2Addr, 0, 0)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	// second buyer's funds stayed put
	balance, err := f.usdc.BalanceOf(ctx, buyer2Addr)
	require.NoError(t, err)
	assert.Equal(t, domain.ScaleToDecimals(1000, 6), balance)
}

func TestBuyBeyondSaleCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 2000)

	err := f.engine.BuyFromContract(ctx, buyerAddr, 5, 0)
	assert.ErrorIs(t, err, domain.ErrNotForSale)

	// raising the cap opens the slot
	require.NoError(t, f.engine.SetMaxSaleIndex(ctx, adminAddr, 6))
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 5, 0))

	owner, err := f.engine.OwnerOf(ctx, 5)
	require.NoError(t, err)
	assert.True(t, owner.Equal(buyerAddr))
}

func TestBuyInsufficientAllowanceLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// minted but never approved
	f.usdc.Mint(buyerAddr, domain.ScaleToDecimals(1000, 6))

	err := f.engine.BuyFromContract(ctx, buyerAddr, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)

	owner, err := f.engine.OwnerOf(ctx, 0)
	require.NoError(t, err)
	assert.True(t, owner.Equal(custodyAddr))

	journal, err := f.engine.Journal(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, journal)
	assert.Empty(t, f.published.types())
}

func TestBuyUnknownCurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.engine.BuyFromContract(ctx, buyerAddr, 0, 3)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)

	err = f.engine.BuyFromContract(ctx, buyerAddr, 0, -1)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}

func TestBuyMissingAsset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.engine.SetMaxSaleIndex(ctx, ownerAddr, 100))
	err := f.engine.BuyFromContract(ctx, buyerAddr, 42, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetMaxSaleIndexRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.SetMaxSaleIndex(ctx, buyerAddr, 18), domain.ErrNotAdminOrOwner)
	assert.NoError(t, f.engine.SetMaxSaleIndex(ctx, adminAddr, 18))
	assert.NoError(t, f.engine.SetMaxSaleIndex(ctx, ownerAddr, 19))
}

func TestStageRequestConfirmCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1000+100+100)
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))

	require.NoError(t, f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0))

	details, err := f.engine.NFTDetails(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, details.Pending)
	assert.True(t, details.Pending.Requester.Equal(buyerAddr))
	assert.False(t, details.Pending.Final)

	// a second request while one is pending is refused
	err = f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0)
	assert.ErrorIs(t, err, domain.ErrWorkInProgress)

	// admin confirmation advances the stage and releases the lock
	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageModeling))

	details, err = f.engine.NFTDetails(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, details.Pending)
	assert.Equal(t, domain.StageModeling, details.Stage)

	// the lock is gone, the next request goes through
	require.NoError(t, f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0))
}

func TestStageRequestPullsFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1000)
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))

	// price is spent, nothing left for the fee
	err := f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)

	fund(t, f.usdc, buyerAddr, 100)
	require.NoError(t, f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0))

	custodyBalance, err := f.usdc.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.ScaleToDecimals(1100, 6), custodyBalance)
}

func TestRequestFinalStageApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1200)
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))

	require.NoError(t, f.engine.RequestFinalStage(ctx, buyerAddr, 0, 0, true, "ship as is"))

	details, err := f.engine.NFTDetails(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StageFinished, details.Stage)
	assert.Nil(t, details.Pending, "approval completes the lifecycle immediately")
	assert.Equal(t, "ship as is", details.FinalDetails)
}

func TestRequestFinalStageNotApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1200)
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))

	require.NoError(t, f.engine.RequestFinalStage(ctx, buyerAddr, 0, 0, false, "needs darker glaze"))

	details, err := f.engine.NFTDetails(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StageNew, details.Stage, "stage unchanged until admin review")
	require.NotNil(t, details.Pending)
	assert.True(t, details.Pending.Final)
	assert.Equal(t, "needs darker glaze", details.FinalDetails)

	// admin resolves the review by setting the stage
	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageModeling))
	details, err = f.engine.NFTDetails(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, details.Pending)
}

func TestSetNftStagePolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageModeling))

	// regression is always refused
	err := f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageNew)
	assert.ErrorIs(t, err, domain.ErrInvalidStage)

	// skipping ahead needs the skip policy, which is off
	err = f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageColoring)
	assert.ErrorIs(t, err, domain.ErrInvalidStage)

	// re-asserting the current stage is a no-op confirm
	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageModeling))

	// out-of-range values are rejected outright
	err = f.engine.SetNftStage(ctx, adminAddr, 0, domain.Stage(9))
	assert.ErrorIs(t, err, domain.ErrInvalidStage)

	// customers cannot confirm stages
	err = f.engine.SetNftStage(ctx, buyerAddr, 0, domain.StageFiring)
	assert.ErrorIs(t, err, domain.ErrNotAdminOrOwner)
}

func TestSetNftStageSkipAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	edition, err := f.store.GetEdition(ctx)
	require.NoError(t, err)
	edition.AllowStageSkip = true
	require.NoError(t, f.store.UpdateEdition(ctx, edition))

	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StagePrefinal))

	// even with skips on, stages never regress
	err = f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageFiring)
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestWithdrawSplitsExactly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// odd balance makes the rounding visible: artist gets the floor of the
	// half, developer the remainder
	f.usdc.Mint(custodyAddr, big.NewInt(1_000_001))

	require.NoError(t, f.engine.WithdrawAllOfToken(ctx, adminAddr, usdcAddr))

	artistBalance, err := f.usdc.BalanceOf(ctx, artistAddr)
	require.NoError(t, err)
	developerBalance, err := f.usdc.BalanceOf(ctx, developerAddr)
	require.NoError(t, err)
	custodyBalance, err := f.usdc.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(500_000), artistBalance)
	assert.Equal(t, big.NewInt(500_001), developerBalance)
	assert.Equal(t, int64(0), custodyBalance.Int64())
	assert.Equal(t, big.NewInt(1_000_001), new(big.Int).Add(artistBalance, developerBalance))
}

func TestWithdrawZeroBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.engine.WithdrawAllOfToken(ctx, ownerAddr, usdcAddr))

	err := f.engine.WithdrawAllOfToken(ctx, buyerAddr, usdcAddr)
	assert.ErrorIs(t, err, domain.ErrNotAdminOrOwner)
}

func TestPayeeReassignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	newArtist := domain.Address("0x5000000000000000000000000000000000000005")

	// owner only; the admin cannot move money destinations
	err := f.engine.SetArtistAddress(ctx, adminAddr, newArtist)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	require.NoError(t, f.engine.SetArtistAddress(ctx, ownerAddr, newArtist))

	f.usdc.Mint(custodyAddr, big.NewInt(1_000_000))
	require.NoError(t, f.engine.WithdrawAllOfToken(ctx, ownerAddr, usdcAddr))

	balance, err := f.usdc.BalanceOf(ctx, newArtist)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500_000), balance)
}

func TestReplaceRegistry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// arity is fixed at the current registry size
	err := f.engine.SetStablesAddress(ctx, ownerAddr, []domain.Address{usdcAddr})
	assert.ErrorIs(t, err, domain.ErrArityMismatch)

	// owner only
	err = f.engine.SetStablesAddress(ctx, adminAddr, []domain.Address{usdcAddr, daiAddr, usdtAddr})
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	replacement := domain.Address("0xb000000000000000000000000000000000000001")
	require.NoError(t, f.engine.SetStablesAddress(ctx, ownerAddr, []domain.Address{replacement, daiAddr, usdtAddr}))

	addr, err := f.engine.TokenForCurrency(ctx, 0)
	require.NoError(t, err)
	assert.True(t, addr.Equal(replacement))

	currencies, err := f.engine.Currencies(ctx)
	require.NoError(t, err)
	assert.Len(t, currencies, 3)
}

func TestTokenURIRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	uri, err := f.engine.TokenURI(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "https://s.nft.mirrah.art/one/metadata/7", uri)

	_, err = f.engine.TokenURI(ctx, 30)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournalRecordsCommitOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fund(t, f.usdc, buyerAddr, 1100)
	require.NoError(t, f.engine.BuyFromContract(ctx, buyerAddr, 0, 0))
	require.NoError(t, f.engine.RequestStateUpdate(ctx, buyerAddr, 0, 0))
	require.NoError(t, f.engine.SetNftStage(ctx, adminAddr, 0, domain.StageModeling))

	journal, err := f.engine.Journal(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, journal, 3)
	assert.Equal(t, "purchase", journal[0].EventType)
	assert.Equal(t, "stage_requested", journal[1].EventType)
	assert.Equal(t, "stage_set", journal[2].EventType)

	assetID := uint64(0)
	scoped, err := f.engine.Journal(ctx, &assetID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, scoped, 3)
}

func TestTreasuryBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.usdc.Mint(custodyAddr, big.NewInt(123))

	balance, err := f.engine.TreasuryBalance(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(123), balance)

	_, err = f.engine.TreasuryBalance(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}
