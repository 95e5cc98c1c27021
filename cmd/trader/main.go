package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/engine"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/executor"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/gateway"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/guard"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/money"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/notification"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/aws"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/cache"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/config"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/worker"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/quote"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/resolver"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	log.Println("Loading configuration...")
	cfg := config.MustLoad(configPath)

	// Setup observability (foundational - must be first)
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("trader", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracer, err := observability.NewTracerProvider(ctx, "trader", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(ctx)

	logger.Info("observability setup complete")

	// Caches: memory always, Redis layered on top when enabled.
	memCache := cache.NewMemoryCache(cfg.Cache.L1MaxSize)
	defer memCache.Close()

	var poolCache cache.Cache = memCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.LogError(ctx, "failed to create Redis cache", err)
			log.Fatalf("Failed to create Redis cache: %v", err)
		}
		defer redisCache.Close()
		poolCache = cache.NewLayeredCache(memCache, redisCache)
	}

	// RPC gateway
	logger.Info("connecting to chain...", "chain_id", cfg.Chain.ChainID)
	endpoints := make([]gateway.EndpointConfig, len(cfg.Chain.RPCEndpoints))
	for i, ep := range cfg.Chain.RPCEndpoints {
		endpoints[i] = gateway.EndpointConfig{
			URL:            ep.URL,
			RatePerSecond:  ep.RatePerSecond,
			MaxConcurrency: ep.MaxConcurrency,
		}
	}

	gw, err := gateway.New(ctx, gateway.Config{
		ChainID:   cfg.Chain.ChainID,
		Endpoints: endpoints,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create gateway", err)
		log.Fatalf("Failed to create gateway: %v", err)
	}
	defer gw.Close()

	// Pool and token metadata resolver
	res, err := resolver.New(resolver.Config{
		Caller:            gw,
		DecimalsOverrides: cfg.Tokens.DecimalsOverrides,
		USDSymbolHints:    cfg.Tokens.USDSymbolHints,
		MinPoolLiquidity:  cfg.Trading.MinPoolLiquidityWei(),
		NegativeTTL: cache.NegativeTTLPolicy{
			Missing:      cfg.Cache.NegativeMissingTTL,
			LowLiquidity: cfg.Cache.NegativeShallowTTL,
			Found:        cfg.Cache.NegativeFoundTTL,
		},
		PoolCache: poolCache,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	// Router adapters and quote fan-out
	routers, err := quote.BuildRouters(cfg.Routers, res)
	if err != nil {
		log.Fatalf("Failed to build routers: %v", err)
	}
	logger.Info("routers configured", "count", len(routers))

	workerPool := worker.NewPool(ctx, len(routers)+2, len(routers)*4)
	defer workerPool.Close()

	fanout := quote.NewFanout(routers, workerPool, logger, metrics)

	// Profitability guard
	gasToken, stable, stableDecimals := pricingAnchors(cfg)

	pricer := guard.NewPoolPricer(fanout, res, stable, stableDecimals, cfg.Gas.FallbackETHUSD, 30*time.Second)
	converter := guard.NewConverter(stableAddresses(cfg), res, pricer)
	gasOracle := guard.NewGasOracle(gw, cfg.Gas.PriceTTL, cfg.Gas.MaxPriceGwei, metrics)

	profitGuard, err := guard.New(guard.Config{
		Converter: converter,
		GasOracle: gasOracle,
		NativeUSD: pricer,
		GasToken:  gasToken,
		MinProfit: money.NewUSD(cfg.Trading.MinProfitUSD),
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		log.Fatalf("Failed to create guard: %v", err)
	}

	// Trade event publisher
	var publisher notification.Publisher = notification.NewNoOpPublisher(logger)
	if cfg.AWS.Enabled {
		awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{
			Region:   cfg.AWS.Region,
			Endpoint: cfg.AWS.Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		snsClient := aws.NewSNSClient(aws.SNSClientConfig{
			AWSConfig: awsCfg,
			Endpoint:  cfg.AWS.Endpoint,
			Logger:    logger,
			Metrics:   metrics,
		})
		publisher, err = notification.NewSNSPublisher(notification.SNSPublisherConfig{
			SNSClient: snsClient,
			TopicARN:  cfg.AWS.SNSTopicARN,
			Logger:    logger,
		})
		if err != nil {
			log.Fatalf("Failed to create SNS publisher: %v", err)
		}
	}

	// Executor, only when trading for real
	var trader engine.Trader
	if !cfg.Trading.DryRun {
		key := os.Getenv("TRADER_PRIVATE_KEY")
		if key == "" {
			log.Fatalf("TRADER_PRIVATE_KEY is required when dry_run is disabled")
		}
		signer, err := executor.NewLocalSigner(key, gw.ChainID())
		if err != nil {
			log.Fatalf("Failed to create signer: %v", err)
		}
		logger.Info("trading account", "address", signer.Address().Hex())

		trader, err = executor.New(executor.Config{
			Chain:          gw,
			Tokens:         res,
			Gas:            gasOracle,
			Signer:         signer,
			SlippageBps:    cfg.Trading.SlippageBps,
			MaxSlippageBps: cfg.Trading.MaxSlippageBps,
			MaxAttempts:    cfg.Trading.MaxAttempts,
			ConfirmTimeout: cfg.Trading.ConfirmTimeout,
			Logger:         logger,
			Metrics:        metrics,
		})
		if err != nil {
			log.Fatalf("Failed to create executor: %v", err)
		}
	}

	// Trading pairs
	pairs := make([]engine.Pair, 0, len(cfg.Trading.Pairs))
	for _, name := range cfg.Trading.Pairs {
		base, counter, err := cfg.ParsePair(name)
		if err != nil {
			log.Fatalf("Bad pair %q: %v", name, err)
		}
		pairs = append(pairs, engine.Pair{
			Name:      name,
			SellToken: common.HexToAddress(base.Address),
			BuyToken:  common.HexToAddress(counter.Address),
		})
	}

	eng, err := engine.New(engine.Config{
		Pairs:        pairs,
		NotionalUSD:  money.NewUSD(cfg.Trading.NotionalUSD),
		TickInterval: cfg.Trading.TickInterval,
		TickBudget:   cfg.Trading.TickBudget,
		DryRun:       cfg.Trading.DryRun,
		Quoter:       fanout,
		Guard:        profitGuard,
		Trader:       trader,
		Sizer:        converter,
		Publisher:    publisher,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	go startHTTPServer(cfg.HTTP.Port, metrics, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting trading engine...", "dry_run", cfg.Trading.DryRun)
	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.LogError(ctx, "engine error", err)
			cancel()
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully stopping...")
	cancel()

	logger.Info("application stopped")
}

// pricingAnchors picks the gas token and the stablecoin the reference
// pricer quotes against.
func pricingAnchors(cfg *config.Config) (gasToken, stable common.Address, stableDecimals int) {
	registry := cfg.TokenRegistry()

	if weth, ok := registry["WETH"]; ok {
		gasToken = common.HexToAddress(weth.Address)
	}

	stableDecimals = 6
	stables := cfg.StableAddresses()
	if len(stables) > 0 {
		stable = common.HexToAddress(stables[0])
		for _, info := range registry {
			if strings.EqualFold(info.Address, stables[0]) {
				stableDecimals = info.Decimals
				break
			}
		}
	}
	return gasToken, stable, stableDecimals
}

func stableAddresses(cfg *config.Config) []common.Address {
	raw := cfg.StableAddresses()
	out := make([]common.Address, 0, len(raw))
	for _, a := range raw {
		out = append(out, common.HexToAddress(a))
	}
	return out
}

// startHTTPServer starts HTTP server for health checks and metrics
func startHTTPServer(port int, metrics *observability.Metrics, logger *observability.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP server listening", "addr", addr)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.LogError(context.Background(), "HTTP server error", err)
	}
}
