package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address is an account address in 0x-prefixed hex form. Addresses identify
// buyers, payees and role holders; the ledger itself holds custody under its
// own address.
type Address string

// Valid reports whether the address is well-formed hex
func (a Address) Valid() bool {
	return common.IsHexAddress(string(a))
}

// Normalized returns the EIP-55 checksummed form of the address so that
// equality checks are insensitive to input casing
func (a Address) Normalized() Address {
	if !a.Valid() {
		return a
	}
	return Address(common.HexToAddress(string(a)).Hex())
}

// Equal compares two addresses after normalization
func (a Address) Equal(b Address) bool {
	return a.Normalized() == b.Normalized()
}

// CurrencyIndex is a position in the stablecoin registry. The registry is an
// ordered fixed-arity list; indices are stable across bulk replacement.
type CurrencyIndex int

// Prices holds the sale price ladder parameters in whole currency-agnostic
// units. The amount actually pulled at purchase time is scaled to the chosen
// stablecoin's decimal precision.
type Prices struct {
	InitialPrice   uint64 `json:"initial_price"`
	PriceIncrement uint64 `json:"price_increment"`
}

// For returns the ladder price for a sale index:
// initialPrice + saleIndex * priceIncrement.
func (p Prices) For(saleIndex uint64) uint64 {
	return p.InitialPrice + saleIndex*p.PriceIncrement
}

// ScaleToDecimals converts a whole-unit amount into the native integer amount
// of a token with the given decimal precision (amount * 10^decimals)
func ScaleToDecimals(amount uint64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(new(big.Int).SetUint64(amount), scale)
}

// PendingRequest captures the optimistic lock on an asset: at most one
// unresolved stage-change request may exist per asset, and only an admin
// confirmation clears it.
type PendingRequest struct {
	Requester Address       `json:"requester"`
	Currency  CurrencyIndex `json:"currency"`
	Final     bool          `json:"final"`
}

// AssetDetails is the read model for a single asset
type AssetDetails struct {
	ID           uint64          `json:"id"`
	Owner        Address         `json:"owner"`
	Stage        Stage           `json:"stage"`
	Pending      *PendingRequest `json:"pending,omitempty"`
	FinalDetails string          `json:"final_details,omitempty"`
}
