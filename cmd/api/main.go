package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mirrah-art/custody-ledger/internal/api/middleware"
	"github.com/mirrah-art/custody-ledger/internal/api/server"
	"github.com/mirrah-art/custody-ledger/internal/config"
	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/ledger"
	"github.com/mirrah-art/custody-ledger/internal/logger"
	"github.com/mirrah-art/custody-ledger/internal/messaging"
	"github.com/mirrah-art/custody-ledger/internal/providers/jetstream"
	"github.com/mirrah-art/custody-ledger/internal/stable"
	"github.com/mirrah-art/custody-ledger/internal/store"
	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Custody Ledger API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Migrate and seed; seeding is a no-op once the edition row exists
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	if err := validateRoles(cfg); err != nil {
		logger.FatalCtx(ctx, "Invalid edition configuration", zap.Error(err))
	}
	if err := store.Seed(ctx, db, seedEdition(cfg), cfg.Edition.Stables); err != nil {
		logger.FatalCtx(ctx, "Failed to seed edition", zap.Error(err))
	}

	dataStore := store.NewPGStore(db)

	// Select the fungible asset adapter
	stables, err := buildResolver(ctx, cfg)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize stablecoin adapter", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Stablecoin adapter ready", zap.String("mode", cfg.StableMode))

	// Event publisher is optional; without it events are only journaled
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		logger.WarnCtx(ctx, "NATS URL not configured, events will only be journaled")
	}

	engine := ledger.New(dataStore, stables, publisher)

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	authConfig := middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	}

	srv := server.New(serverConfig, engine, authConfig)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

func seedEdition(cfg *config.APIConfig) schema.Edition {
	return schema.Edition{
		TotalSupply:      cfg.Edition.TotalSupply,
		InitialPrice:     cfg.Edition.InitialPrice,
		PriceIncrement:   cfg.Edition.PriceIncrement,
		MaxSaleIndex:     cfg.Edition.MaxSaleIndex,
		StageFee:         cfg.Edition.StageFee,
		ArtistShareBps:   cfg.Edition.ArtistShareBps,
		AllowStageSkip:   cfg.Edition.AllowStageSkip,
		BaseURI:          cfg.Edition.BaseURI,
		OwnerAddress:     normalized(cfg.Edition.Owner),
		AdminAddress:     normalized(cfg.Edition.Admin),
		ArtistAddress:    normalized(cfg.Edition.Artist),
		DeveloperAddress: normalized(cfg.Edition.Developer),
		CustodyAddress:   normalized(cfg.Edition.Custody),
	}
}

// validateRoles rejects a first start with missing or malformed role
// addresses. A seeded database ignores these values, but checking anyway
// catches configuration drift early.
func validateRoles(cfg *config.APIConfig) error {
	roles := map[string]string{
		"edition.owner":     cfg.Edition.Owner,
		"edition.admin":     cfg.Edition.Admin,
		"edition.artist":    cfg.Edition.Artist,
		"edition.developer": cfg.Edition.Developer,
		"edition.custody":   cfg.Edition.Custody,
	}
	for key, address := range roles {
		if !domain.Address(address).Valid() {
			return fmt.Errorf("%s: invalid address %q", key, address)
		}
	}
	for i, address := range cfg.Edition.Stables {
		if !domain.Address(address).Valid() {
			return fmt.Errorf("edition.stables[%d]: invalid address %q", i, address)
		}
	}
	return nil
}

func normalized(address string) string {
	return string(domain.Address(address).Normalized())
}

// buildResolver selects the fungible asset adapter. The memory adapter exists
// for local development; it registers one 6-decimal token per configured
// registry slot.
func buildResolver(ctx context.Context, cfg *config.APIConfig) (stable.Resolver, error) {
	switch cfg.StableMode {
	case "memory":
		resolver := stable.NewMemoryResolver(domain.Address(cfg.Edition.Custody))
		for _, address := range cfg.Edition.Stables {
			resolver.Register(stable.NewMemoryToken(domain.Address(address), 6))
		}
		return resolver, nil
	case "erc20", "":
		return stable.NewERC20Resolver(ctx, cfg.Ethereum.RPCURL, cfg.Ethereum.OperatorKey, big.NewInt(cfg.Ethereum.ChainID))
	default:
		return nil, fmt.Errorf("unknown stable mode %q", cfg.StableMode)
	}
}
