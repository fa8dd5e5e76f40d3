package stable

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mirrah-art/custody-ledger/internal/domain"
)

// erc20ABI covers the ERC-20 surface the ledger uses
const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

const readRetries = 3

// ERC20Resolver builds Token clients over a single Ethereum RPC connection.
// Transactions are signed with the custody operator key, so the operator
// address is the on-chain custody account.
type ERC20Resolver struct {
	client   *ethclient.Client
	parsed   abi.ABI
	signer   *bind.TransactOpts
	operator domain.Address
}

// NewERC20Resolver dials the RPC endpoint and prepares a keyed transactor for
// the custody operator
func NewERC20Resolver(ctx context.Context, rpcURL, operatorKeyHex string, chainID *big.Int) (*ERC20Resolver, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	return &ERC20Resolver{
		client:   client,
		parsed:   parsed,
		signer:   signer,
		operator: domain.Address(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}, nil
}

// Operator returns the custody operator address derived from the signing key
func (r *ERC20Resolver) Operator() domain.Address {
	return r.operator
}

// Close releases the RPC connection
func (r *ERC20Resolver) Close() {
	r.client.Close()
}

// Token returns an ERC-20 client bound to the given contract address
func (r *ERC20Resolver) Token(address domain.Address) (Token, error) {
	if !address.Valid() {
		return nil, fmt.Errorf("invalid token address %q", address)
	}
	contract := bind.NewBoundContract(
		common.HexToAddress(string(address)),
		r.parsed, r.client, r.client, r.client,
	)
	return &erc20Token{resolver: r, address: address.Normalized(), contract: contract}, nil
}

type erc20Token struct {
	resolver *ERC20Resolver
	address  domain.Address
	contract *bind.BoundContract
	decimals *uint8
}

func (t *erc20Token) Address() domain.Address {
	return t.address
}

// call performs a read with retries; transient RPC failures are the common
// failure mode here
func (t *erc20Token) call(ctx context.Context, out *[]interface{}, method string, params ...interface{}) error {
	op := func() error {
		return t.contract.Call(&bind.CallOpts{Context: ctx}, out, method, params...)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), readRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("erc20 %s call failed: %w", method, err)
	}
	return nil
}

func (t *erc20Token) Decimals(ctx context.Context) (uint8, error) {
	if t.decimals != nil {
		return *t.decimals, nil
	}
	var out []interface{}
	if err := t.call(ctx, &out, "decimals"); err != nil {
		return 0, err
	}
	decimals := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	t.decimals = &decimals
	return decimals, nil
}

func (t *erc20Token) BalanceOf(ctx context.Context, account domain.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.call(ctx, &out, "balanceOf", common.HexToAddress(string(account))); err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (t *erc20Token) Allowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error) {
	var out []interface{}
	err := t.call(ctx, &out, "allowance",
		common.HexToAddress(string(owner)),
		common.HexToAddress(string(spender)))
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (t *erc20Token) TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	return t.transact(ctx, "transferFrom",
		common.HexToAddress(string(from)),
		common.HexToAddress(string(to)),
		amount)
}

func (t *erc20Token) Transfer(ctx context.Context, to domain.Address, amount *big.Int) error {
	return t.transact(ctx, "transfer", common.HexToAddress(string(to)), amount)
}

func (t *erc20Token) transact(ctx context.Context, method string, params ...interface{}) error {
	opts := *t.resolver.signer
	opts.Context = ctx

	tx, err := t.contract.Transact(&opts, method, params...)
	if err != nil {
		return fmt.Errorf("erc20 %s failed: %w", method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, t.resolver.client, tx)
	if err != nil {
		return fmt.Errorf("erc20 %s not mined: %w", method, err)
	}
	if receipt.Status == 0 {
		return fmt.Errorf("erc20 %s reverted: tx %s", method, tx.Hash().Hex())
	}
	return nil
}
