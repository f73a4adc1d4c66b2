package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/api/rest"
	"github.com/tessera-studio/provenance-api/internal/api/server"
	"github.com/tessera-studio/provenance-api/internal/cache"
	"github.com/tessera-studio/provenance-api/internal/config"
	"github.com/tessera-studio/provenance-api/internal/gateway"
	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/metadata"
	"github.com/tessera-studio/provenance-api/internal/ownership"
	"github.com/tessera-studio/provenance-api/internal/provenance"
	ethereum "github.com/tessera-studio/provenance-api/internal/providers/ethereum"
	"github.com/tessera-studio/provenance-api/internal/ratelimit"
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
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "provenance-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Provenance API")

	// Connect to the Ethereum RPC endpoint
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC",
			zap.Error(err),
			zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	chainClient := ethereum.NewClient(cfg.Ethereum.ChainID, cfg.Ethereum.ContractAddress, ethClient, cfg.Ethereum.HistoricalOwners)
	defer chainClient.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum RPC",
		zap.String("chain_id", string(cfg.Ethereum.ChainID)),
		zap.String("contract", cfg.Ethereum.ContractAddress))

	// Gateway resolver and bounded metadata fetcher
	gatewayResolver := gateway.NewResolver(&gateway.Config{
		IPFSGateways:           cfg.Gateway.IPFSGateways,
		ArweaveGateways:        cfg.Gateway.ArweaveGateways,
		AdditionalAllowedHosts: cfg.Gateway.AllowedHosts,
	}, nil)
	httpClient := adapter.NewHTTPClient(cfg.Fetcher.Timeout)
	fetcher := metadata.NewFetcher(httpClient, gatewayResolver, &metadata.Config{
		FetchTimeout: cfg.Fetcher.Timeout,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
	})
	metadataResolver := metadata.NewResolver(chainClient, gatewayResolver, fetcher)

	// Inference pipeline and ownership verifier
	pipeline := provenance.NewPipeline(chainClient, metadataResolver, cfg.Ethereum.ContractAddress, cfg.Ethereum.ChainID, &provenance.Config{
		OwnerLookupConcurrency: cfg.Provenance.OwnerLookupConcurrency,
	})
	verifier := ownership.NewVerifier(chainClient)

	// Redis-backed cache and rate limiter, both optional
	clock := adapter.NewClock()
	var redisClient adapter.RedisClient
	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		redisClient = adapter.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		store = cache.NewRedisStore(redisClient)
		logger.InfoCtx(ctx, "Using Redis response cache", zap.String("addr", cfg.Cache.RedisAddr))
	} else {
		store = cache.NewMemoryStore(clock)
		logger.InfoCtx(ctx, "Using in-memory response cache")
	}

	limiter, err := ratelimit.NewLimiter(&ratelimit.Config{
		RequestsPerSecond:   cfg.RateLimit.RequestsPerSecond,
		Burst:               cfg.RateLimit.Burst,
		EnableLocalFallback: cfg.RateLimit.EnableLocalFallback,
	}, redisClient, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
	}
	defer func() {
		_ = limiter.Close()
	}()

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	handlerConfig := rest.Config{
		Network:         string(cfg.Ethereum.ChainID),
		ContractAddress: cfg.Ethereum.ContractAddress,
		ProvenanceTTL:   cfg.Cache.ProvenanceTTL,
		MetadataTTL:     cfg.Cache.MetadataTTL,
	}

	// Create and start server
	srv := server.New(serverConfig, handlerConfig, pipeline, metadataResolver, verifier, store, limiter)

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

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
