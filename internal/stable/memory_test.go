package stable

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrah-art/custody-ledger/internal/domain"
)

const (
	tokenAddr   = domain.Address("0x1000000000000000000000000000000000000001")
	custodyAddr = domain.Address("0x2000000000000000000000000000000000000002")
	buyerAddr   = domain.Address("0x3000000000000000000000000000000000000003")
	payeeAddr   = domain.Address("0x4000000000000000000000000000000000000004")
)

func TestMemoryTokenTransferFrom(t *testing.T) {
	ctx := context.Background()
	token := NewMemoryToken(tokenAddr, 6)

	token.Mint(buyerAddr, big.NewInt(1_000_000))
	token.Approve(buyerAddr, custodyAddr, big.NewInt(600_000))

	err := token.TransferFrom(ctx, buyerAddr, custodyAddr, big.NewInt(500_000))
	require.NoError(t, err)

	buyerBalance, err := token.BalanceOf(ctx, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500_000), buyerBalance)

	custodyBalance, err := token.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500_000), custodyBalance)

	// allowance is consumed, not reset
	remaining, err := token.Allowance(ctx, buyerAddr, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000), remaining)
}

func TestMemoryTokenTransferFromInsufficientAllowance(t *testing.T) {
	ctx := context.Background()
	token := NewMemoryToken(tokenAddr, 6)

	token.Mint(buyerAddr, big.NewInt(1_000_000))
	token.Approve(buyerAddr, custodyAddr, big.NewInt(100))

	err := token.TransferFrom(ctx, buyerAddr, custodyAddr, big.NewInt(200))
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)

	// nothing moved
	balance, err := token.BalanceOf(ctx, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)
}

func TestMemoryTokenTransferFromInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	token := NewMemoryToken(tokenAddr, 6)

	token.Mint(buyerAddr, big.NewInt(50))
	token.Approve(buyerAddr, custodyAddr, big.NewInt(200))

	err := token.TransferFrom(ctx, buyerAddr, custodyAddr, big.NewInt(200))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestMemoryResolverBindsCustody(t *testing.T) {
	ctx := context.Background()
	resolver := NewMemoryResolver(custodyAddr)
	token := NewMemoryToken(tokenAddr, 6)
	resolver.Register(token)

	token.Mint(custodyAddr, big.NewInt(1000))

	bound, err := resolver.Token(tokenAddr)
	require.NoError(t, err)

	// outbound transfers are sent from the custody account
	require.NoError(t, bound.Transfer(ctx, payeeAddr, big.NewInt(400)))

	payeeBalance, err := token.BalanceOf(ctx, payeeAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), payeeBalance)

	custodyBalance, err := token.BalanceOf(ctx, custodyAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), custodyBalance)
}

func TestMemoryResolverAddressCasing(t *testing.T) {
	resolver := NewMemoryResolver(custodyAddr)
	resolver.Register(NewMemoryToken("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", 18))

	_, err := resolver.Token("0xabcdef0123456789abcdef0123456789abcdef01")
	assert.NoError(t, err)

	_, err = resolver.Token("0x9999999999999999999999999999999999999999")
	assert.Error(t, err)
}
