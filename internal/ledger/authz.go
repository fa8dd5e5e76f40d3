package ledger

import (
	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

// role is the authority level an operation demands
type role int

const (
	// roleAdminOrOwner gates operational calls: sale cap, stage
	// confirmation, withdrawals
	roleAdminOrOwner role = iota
	// roleOwner gates structural calls: payee and registry reassignment
	roleOwner
)

// requireRole is the single authorization guard for every gated operation.
// The owner always has admin rights.
func requireRole(edition *schema.Edition, caller domain.Address, required role) error {
	isOwner := caller.Equal(domain.Address(edition.OwnerAddress))
	switch required {
	case roleOwner:
		if !isOwner {
			return domain.ErrNotOwner
		}
	case roleAdminOrOwner:
		if !isOwner && !caller.Equal(domain.Address(edition.AdminAddress)) {
			return domain.ErrNotAdminOrOwner
		}
	}
	return nil
}
