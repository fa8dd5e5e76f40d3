package stable

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/mirrah-art/custody-ledger/internal/domain"
)

// MemoryToken is an in-process stablecoin with ERC-20 transfer-from
// semantics. It stands in for a real token contract in tests and in dev mode,
// the same way the original deployment used mock tokens on test networks.
type MemoryToken struct {
	mu         sync.Mutex
	address    domain.Address
	decimals   uint8
	balances   map[domain.Address]*big.Int
	allowances map[domain.Address]map[domain.Address]*big.Int
}

// NewMemoryToken creates an empty in-process token
func NewMemoryToken(address domain.Address, decimals uint8) *MemoryToken {
	return &MemoryToken{
		address:    address.Normalized(),
		decimals:   decimals,
		balances:   make(map[domain.Address]*big.Int),
		allowances: make(map[domain.Address]map[domain.Address]*big.Int),
	}
}

func (t *MemoryToken) Address() domain.Address {
	return t.address
}

func (t *MemoryToken) Decimals(ctx context.Context) (uint8, error) {
	return t.decimals, nil
}

// Mint credits an account; test and dev setup only
func (t *MemoryToken) Mint(account domain.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(account.Normalized(), amount)
}

// Approve authorizes spender to pull up to amount from owner
func (t *MemoryToken) Approve(owner, spender domain.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, spender = owner.Normalized(), spender.Normalized()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[domain.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (t *MemoryToken) BalanceOf(ctx context.Context, account domain.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balance(account.Normalized())), nil
}

func (t *MemoryToken) Allowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.allowance(owner.Normalized(), spender.Normalized())), nil
}

func (t *MemoryToken) TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from, to = from.Normalized(), to.Normalized()

	// to acts as the spender: the custody account pulls pre-approved funds
	allowance := t.allowance(from, to)
	if allowance.Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}
	if t.balance(from).Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}

	t.allowances[from][to] = new(big.Int).Sub(allowance, amount)
	t.balances[from] = new(big.Int).Sub(t.balance(from), amount)
	t.credit(to, amount)
	return nil
}

func (t *MemoryToken) Transfer(ctx context.Context, to domain.Address, amount *big.Int) error {
	return fmt.Errorf("memory token requires an explicit sender, use TransferOut")
}

// TransferOut moves funds from an explicit sender; the memory bank has no
// implicit signer the way the ERC-20 client does
func (t *MemoryToken) TransferOut(from, to domain.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from, to = from.Normalized(), to.Normalized()
	if t.balance(from).Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	t.balances[from] = new(big.Int).Sub(t.balance(from), amount)
	t.credit(to, amount)
	return nil
}

func (t *MemoryToken) balance(account domain.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return big.NewInt(0)
}

func (t *MemoryToken) allowance(owner, spender domain.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return big.NewInt(0)
}

func (t *MemoryToken) credit(account domain.Address, amount *big.Int) {
	t.balances[account] = new(big.Int).Add(t.balance(account), amount)
}

// boundMemoryToken adapts a MemoryToken to the Token interface for a fixed
// custody account, mirroring how the ERC-20 client signs as the operator
type boundMemoryToken struct {
	*MemoryToken
	custody domain.Address
}

func (t *boundMemoryToken) Transfer(ctx context.Context, to domain.Address, amount *big.Int) error {
	return t.TransferOut(t.custody, to, amount)
}

// MemoryResolver resolves registered addresses to in-process tokens
type MemoryResolver struct {
	mu      sync.Mutex
	custody domain.Address
	tokens  map[domain.Address]*MemoryToken
}

// NewMemoryResolver creates a resolver whose outbound transfers are sent from
// the custody address
func NewMemoryResolver(custody domain.Address) *MemoryResolver {
	return &MemoryResolver{
		custody: custody.Normalized(),
		tokens:  make(map[domain.Address]*MemoryToken),
	}
}

// Register adds a token to the resolver
func (r *MemoryResolver) Register(token *MemoryToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Address()] = token
}

// Token returns the in-process token registered at address
func (r *MemoryResolver) Token(address domain.Address) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[address.Normalized()]
	if !ok {
		return nil, fmt.Errorf("no token registered at %s", address)
	}
	return &boundMemoryToken{MemoryToken: token, custody: r.custody}, nil
}
