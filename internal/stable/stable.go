// Package stable provides the fungible asset adapter used to move stablecoin
// balances between accounts. The ledger core only sees the Token interface;
// production wires an ERC-20 client, tests and dev mode wire the in-process
// bank.
package stable

import (
	"context"
	"math/big"

	"github.com/mirrah-art/custody-ledger/internal/domain"
)

// Token is the capability surface the ledger needs from a stablecoin
// contract. Amounts are native integer amounts in the token's own decimal
// precision.
type Token interface {
	// Address returns the token contract address
	Address() domain.Address

	// Decimals returns the token's decimal precision
	Decimals(ctx context.Context) (uint8, error)

	// BalanceOf returns an account's balance
	BalanceOf(ctx context.Context, account domain.Address) (*big.Int, error)

	// Allowance returns how much spender may pull from owner
	Allowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error)

	// TransferFrom pulls a pre-authorized amount from from into to. Fails
	// with the token's own allowance/balance error, which the ledger
	// propagates unmodified.
	TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error

	// Transfer moves the custody account's own balance to to
	Transfer(ctx context.Context, to domain.Address, amount *big.Int) error
}

// Resolver maps a registered token address to a Token client
type Resolver interface {
	Token(address domain.Address) (Token, error)
}
