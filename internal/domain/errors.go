package domain

import "errors"

var (
	// ErrNotFound is returned when an asset id is outside the edition range
	ErrNotFound = errors.New("asset not found")

	// ErrNotOwner is returned when an ownership transfer names a from-account
	// that does not currently own the asset, or for owner-only operations
	// attempted by another account
	ErrNotOwner = errors.New("not owner")

	// ErrNotAdminOrOwner is returned for admin-gated operations attempted by
	// an account that is neither the admin nor the owner
	ErrNotAdminOrOwner = errors.New("not admin or owner")

	// ErrNotForSale is returned when a purchase targets a sale index at or
	// beyond the current sale cap
	ErrNotForSale = errors.New("asset not for sale")

	// ErrUnknownCurrency is returned when a currency index is outside the
	// registered stablecoin list
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrWorkInProgress is returned when a stage-change request is made while
	// a previous request on the same asset is still unresolved
	ErrWorkInProgress = errors.New("work in progress")

	// ErrTerminalStage is returned when asking for the successor of the
	// finished stage
	ErrTerminalStage = errors.New("terminal stage")

	// ErrInvalidStage is returned when an admin stage assignment is out of
	// range, regresses, or skips forward when skipping is not allowed
	ErrInvalidStage = errors.New("invalid stage")

	// ErrArityMismatch is returned when a registry replacement does not carry
	// exactly one address per registered currency slot
	ErrArityMismatch = errors.New("currency list arity mismatch")

	// ErrInsufficientAllowance is returned by fungible token adapters when the
	// payer has not pre-authorized the ledger for the required amount
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInsufficientBalance is returned by fungible token adapters when the
	// payer balance does not cover the required amount
	ErrInsufficientBalance = errors.New("insufficient balance")
)
