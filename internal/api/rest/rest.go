package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/mirrah-art/custody-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler *Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	auth := middleware.Auth(authCfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Asset endpoints (public read access)
		v1.GET("/assets", handler.ListAssets)
		v1.GET("/assets/:id", handler.GetAsset)
		v1.GET("/assets/:id/owner", handler.GetOwner)

		// Account endpoints (public read access)
		v1.GET("/accounts/:address/balance", handler.GetBalance)

		// Sale and currency endpoints (public read access)
		v1.GET("/prices", handler.GetPrices)
		v1.GET("/currencies", handler.ListCurrencies)
		v1.GET("/currencies/:index", handler.GetCurrency)
		v1.GET("/treasury/:index", handler.GetTreasuryBalance)

		// Stage helper (public read access)
		v1.GET("/stages/:stage/next", handler.GetNextStage)

		// Event journal (public read access)
		v1.GET("/journal", handler.GetJournal)

		// Purchases (requires authentication)
		v1.POST("/purchases", auth, handler.Buy)

		// Production stage flow (requires authentication)
		v1.POST("/assets/:id/stage-requests", auth, handler.RequestStage)
		v1.POST("/assets/:id/final-requests", auth, handler.RequestFinal)
		v1.PUT("/assets/:id/stage", auth, handler.SetStage)

		// Administration (requires authentication, role checked by the engine)
		v1.PUT("/sale-cap", auth, handler.SetSaleCap)
		v1.PUT("/payees/artist", auth, handler.SetArtist)
		v1.PUT("/payees/developer", auth, handler.SetDeveloper)
		v1.PUT("/currencies", auth, handler.ReplaceRegistry)
		v1.POST("/withdrawals", auth, handler.Withdraw)
	}
}
