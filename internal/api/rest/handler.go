package rest

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mirrah-art/custody-ledger/internal/api/middleware"
	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

// Ledger is the operation surface the REST layer exposes. It is implemented
// by the ledger engine; the interface exists so handlers can be tested
// against a stub.
type Ledger interface {
	OwnerOf(ctx context.Context, id uint64) (domain.Address, error)
	BalanceOf(ctx context.Context, account domain.Address) (int64, error)
	Prices(ctx context.Context) (domain.Prices, error)
	TokenForCurrency(ctx context.Context, index domain.CurrencyIndex) (domain.Address, error)
	Currencies(ctx context.Context) ([]domain.Address, error)
	NFTDetails(ctx context.Context, id uint64) (*domain.AssetDetails, error)
	TokenURI(ctx context.Context, id uint64) (string, error)
	ListAssets(ctx context.Context, owner *domain.Address, limit, offset int) ([]domain.AssetDetails, error)
	Journal(ctx context.Context, assetID *uint64, limit, offset int) ([]schema.LedgerJournal, error)
	TreasuryBalance(ctx context.Context, index domain.CurrencyIndex) (*big.Int, error)

	BuyFromContract(ctx context.Context, caller domain.Address, saleIndex uint64, currency domain.CurrencyIndex) error
	SetMaxSaleIndex(ctx context.Context, caller domain.Address, cap uint64) error
	RequestStateUpdate(ctx context.Context, caller domain.Address, id uint64, currency domain.CurrencyIndex) error
	RequestFinalStage(ctx context.Context, caller domain.Address, id uint64, currency domain.CurrencyIndex, approved bool, details string) error
	SetNftStage(ctx context.Context, caller domain.Address, id uint64, stage domain.Stage) error
	SetArtistAddress(ctx context.Context, caller, artist domain.Address) error
	SetDeveloperAddress(ctx context.Context, caller, developer domain.Address) error
	SetStablesAddress(ctx context.Context, caller domain.Address, addresses []domain.Address) error
	WithdrawAllOfToken(ctx context.Context, caller, tokenAddress domain.Address) error
}

// Handler serves the REST operation surface
type Handler struct {
	ledger Ledger
}

// NewHandler creates a REST handler over the ledger engine
func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetAsset returns the production read model for one asset
// GET /api/v1/assets/:id
func (h *Handler) GetAsset(c *gin.Context) {
	id, ok := assetID(c)
	if !ok {
		return
	}
	details, err := h.ledger.NFTDetails(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	uri, err := h.ledger.TokenURI(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAssetResponse(details, uri))
}

// ListAssets returns assets ordered by id, optionally filtered by owner
// GET /api/v1/assets?owner=<address>&limit=<limit>&offset=<offset>
func (h *Handler) ListAssets(c *gin.Context) {
	var owner *domain.Address
	if raw := c.Query("owner"); raw != "" {
		addr := domain.Address(raw)
		if !addr.Valid() {
			respondBadRequest(c, "Invalid owner address")
			return
		}
		owner = &addr
	}
	limit, offset := pagination(c)

	assets, err := h.ledger.ListAssets(c.Request.Context(), owner, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	resp := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		resp = append(resp, toAssetResponse(&assets[i], ""))
	}
	c.JSON(http.StatusOK, gin.H{"assets": resp})
}

// GetOwner returns the current owner of an asset
// GET /api/v1/assets/:id/owner
func (h *Handler) GetOwner(c *gin.Context) {
	id, ok := assetID(c)
	if !ok {
		return
	}
	owner, err := h.ledger.OwnerOf(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "owner": owner})
}

// GetBalance returns the number of assets held by an account
// GET /api/v1/accounts/:address/balance
func (h *Handler) GetBalance(c *gin.Context) {
	addr := domain.Address(c.Param("address"))
	if !addr.Valid() {
		respondBadRequest(c, "Invalid account address")
		return
	}
	count, err := h.ledger.BalanceOf(c.Request.Context(), addr)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Normalized(), "balance": count})
}

// GetPrices returns the sale price ladder parameters
// GET /api/v1/prices
func (h *Handler) GetPrices(c *gin.Context) {
	prices, err := h.ledger.Prices(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// GetCurrency returns the registered stablecoin address for a registry slot
// GET /api/v1/currencies/:index
func (h *Handler) GetCurrency(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondBadRequest(c, "Invalid currency index")
		return
	}
	addr, err := h.ledger.TokenForCurrency(c.Request.Context(), domain.CurrencyIndex(index))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "address": addr})
}

// ListCurrencies returns the full currency registry in slot order
// GET /api/v1/currencies
func (h *Handler) ListCurrencies(c *gin.Context) {
	currencies, err := h.ledger.Currencies(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// GetNextStage returns the successor of a production stage
// GET /api/v1/stages/:stage/next
func (h *Handler) GetNextStage(c *gin.Context) {
	stage, ok := parseStageParam(c, c.Param("stage"))
	if !ok {
		return
	}
	next, err := stage.Next()
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage.String(), "next": next.String()})
}

// GetJournal returns committed ledger events in commit order
// GET /api/v1/journal?asset_id=<id>&limit=<limit>&offset=<offset>
func (h *Handler) GetJournal(c *gin.Context) {
	var assetID *uint64
	if raw := c.Query("asset_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid asset id")
			return
		}
		assetID = &id
	}
	limit, offset := pagination(c)

	entries, err := h.ledger.Journal(c.Request.Context(), assetID, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"journal": entries})
}

// GetTreasuryBalance returns the custody balance of a registered currency
// GET /api/v1/treasury/:index
func (h *Handler) GetTreasuryBalance(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondBadRequest(c, "Invalid currency index")
		return
	}
	balance, err := h.ledger.TreasuryBalance(c.Request.Context(), domain.CurrencyIndex(index))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "balance": balance.String()})
}

// Buy purchases an edition slot for the authenticated caller
// POST /api/v1/purchases
func (h *Handler) Buy(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	err := h.ledger.BuyFromContract(c.Request.Context(), caller, req.SaleIndex, domain.CurrencyIndex(req.CurrencyIndex))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sale_index": req.SaleIndex, "owner": caller})
}

// RequestStage records a stage-advance request and locks the asset
// POST /api/v1/assets/:id/stage-requests
func (h *Handler) RequestStage(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := assetID(c)
	if !ok {
		return
	}
	var req StageRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	err := h.ledger.RequestStateUpdate(c.Request.Context(), caller, id, domain.CurrencyIndex(req.CurrencyIndex))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "pending": true})
}

// RequestFinal records the finalization request for an asset
// POST /api/v1/assets/:id/final-requests
func (h *Handler) RequestFinal(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := assetID(c)
	if !ok {
		return
	}
	var req FinalRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	err := h.ledger.RequestFinalStage(c.Request.Context(), caller, id,
		domain.CurrencyIndex(req.CurrencyIndex), req.Approved, req.Details)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "approved": req.Approved})
}

// SetStage confirms a stage transition and releases the pending lock
// PUT /api/v1/assets/:id/stage
func (h *Handler) SetStage(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := assetID(c)
	if !ok {
		return
	}
	var req SetStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	stage, ok := parseStageParam(c, req.Stage)
	if !ok {
		return
	}
	if err := h.ledger.SetNftStage(c.Request.Context(), caller, id, stage); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "stage": stage.String()})
}

// SetSaleCap updates the sale cap
// PUT /api/v1/sale-cap
func (h *Handler) SetSaleCap(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req SaleCapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := h.ledger.SetMaxSaleIndex(c.Request.Context(), caller, req.MaxSaleIndex); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_sale_index": req.MaxSaleIndex})
}

// SetArtist reassigns the artist payee
// PUT /api/v1/payees/artist
func (h *Handler) SetArtist(c *gin.Context) {
	h.setPayee(c, h.ledger.SetArtistAddress)
}

// SetDeveloper reassigns the developer payee
// PUT /api/v1/payees/developer
func (h *Handler) SetDeveloper(c *gin.Context) {
	h.setPayee(c, h.ledger.SetDeveloperAddress)
}

func (h *Handler) setPayee(c *gin.Context, set func(ctx context.Context, caller, payee domain.Address) error) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req PayeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	payee := domain.Address(req.Address)
	if !payee.Valid() {
		respondBadRequest(c, "Invalid payee address")
		return
	}
	if err := set(c.Request.Context(), caller, payee); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": payee.Normalized()})
}

// ReplaceRegistry atomically replaces the currency registry
// PUT /api/v1/currencies
func (h *Handler) ReplaceRegistry(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req RegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	addresses := make([]domain.Address, 0, len(req.Addresses))
	for _, raw := range req.Addresses {
		addr := domain.Address(raw)
		if !addr.Valid() {
			respondBadRequest(c, "Invalid currency address", raw)
			return
		}
		addresses = append(addresses, addr)
	}
	if err := h.ledger.SetStablesAddress(c.Request.Context(), caller, addresses); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"arity": len(addresses)})
}

// Withdraw splits the custody balance of a token between the payees
// POST /api/v1/withdrawals
func (h *Handler) Withdraw(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	tokenAddr := domain.Address(req.CurrencyAddress)
	if !tokenAddr.Valid() {
		respondBadRequest(c, "Invalid currency address")
		return
	}
	if err := h.ledger.WithdrawAllOfToken(c.Request.Context(), caller, tokenAddr); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": tokenAddr.Normalized()})
}

func assetID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid asset id")
		return 0, false
	}
	return id, true
}

func callerAddress(c *gin.Context) (domain.Address, bool) {
	addr, ok := middleware.Caller(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, errCodeUnauthorized, "Caller identity not established")
		return "", false
	}
	return addr, true
}

// parseStageParam accepts a stage by name or by enum index
func parseStageParam(c *gin.Context, raw string) (domain.Stage, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		stage := domain.Stage(n)
		if !stage.Valid() {
			respondDomainError(c, domain.ErrInvalidStage)
			return 0, false
		}
		return stage, true
	}
	stage, err := domain.ParseStage(raw)
	if err != nil {
		respondDomainError(c, err)
		return 0, false
	}
	return stage, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
