package rest

import (
	"github.com/mirrah-art/custody-ledger/internal/domain"
)

// AssetResponse is the read model served for a single asset
type AssetResponse struct {
	ID           uint64      `json:"id"`
	Owner        string      `json:"owner"`
	Stage        string      `json:"stage"`
	Pending      *PendingDTO `json:"pending,omitempty"`
	FinalDetails string      `json:"final_details,omitempty"`
	TokenURI     string      `json:"token_uri,omitempty"`
}

// PendingDTO describes an outstanding stage-change request
type PendingDTO struct {
	Requester string `json:"requester"`
	Currency  int    `json:"currency"`
	Final     bool   `json:"final"`
}

// PurchaseRequest buys an edition slot
type PurchaseRequest struct {
	SaleIndex     uint64 `json:"sale_index"`
	CurrencyIndex int    `json:"currency_index"`
}

// StageRequestBody asks to advance an asset to its next stage
type StageRequestBody struct {
	CurrencyIndex int `json:"currency_index"`
}

// FinalRequestBody is the distinguished finalization request
type FinalRequestBody struct {
	CurrencyIndex int    `json:"currency_index"`
	Approved      bool   `json:"approved"`
	Details       string `json:"details"`
}

// SetStageRequest is the admin stage confirmation
type SetStageRequest struct {
	Stage string `json:"stage"`
}

// SaleCapRequest updates the sale cap
type SaleCapRequest struct {
	MaxSaleIndex uint64 `json:"max_sale_index"`
}

// PayeeRequest reassigns a payee address
type PayeeRequest struct {
	Address string `json:"address"`
}

// RegistryRequest atomically replaces the currency registry
type RegistryRequest struct {
	Addresses []string `json:"addresses"`
}

// WithdrawRequest splits the custody balance of a token between the payees
type WithdrawRequest struct {
	CurrencyAddress string `json:"currency_address"`
}

func toAssetResponse(details *domain.AssetDetails, tokenURI string) AssetResponse {
	resp := AssetResponse{
		ID:           details.ID,
		Owner:        string(details.Owner),
		Stage:        details.Stage.String(),
		FinalDetails: details.FinalDetails,
		TokenURI:     tokenURI,
	}
	if details.Pending != nil {
		resp.Pending = &PendingDTO{
			Requester: string(details.Pending.Requester),
			Currency:  int(details.Pending.Currency),
			Final:     details.Pending.Final,
		}
	}
	return resp
}
