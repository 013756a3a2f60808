package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/config"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/database"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/events"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/handlers"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/memstore"
	ledgerRedis "github.com/Ideas2IT/I2I-AuctionHub/internal/redis"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/service"
	"github.com/Ideas2IT/I2I-AuctionHub/migrations"
)

// Config holds application configuration
type Config struct {
	ServerAddr    string
	DatabaseURL   string
	DBMaxConns    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	TierRules     string
	Tokens        []string
	DrawTTL       time.Duration
	Verbosity     int
}

// loadConfig reads env defaults, then lets flags override them
func loadConfig(args []string) (*Config, error) {
	cfg := &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8080"),
		DatabaseURL:   config.GetEnv("DATABASE_URL", ""),
		DBMaxConns:    config.GetEnvInt("DB_MAX_CONNS", 25),
		RedisAddr:     config.GetEnv("REDIS_ADDR", ""),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		NatsURL:       config.GetEnv("NATS_URL", ""),
		TierRules:     config.GetEnv("TIER_RULES", "config/tiers.yaml"),
		Tokens:        config.GetEnvList("AUTH_TOKENS"),
		DrawTTL:       config.GetEnvDuration("DRAW_TTL", 30*time.Minute),
		Verbosity:     config.GetEnvInt("LOG_VERBOSITY", 0),
	}

	fs := pflag.NewFlagSet("api-gateway", pflag.ContinueOnError)
	fs.StringVar(&cfg.ServerAddr, "addr", cfg.ServerAddr, "HTTP listen address")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL ledger URL (empty runs in memory)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for events and pending draws (empty disables)")
	fs.StringVar(&cfg.NatsURL, "nats-url", cfg.NatsURL, "NATS URL for event archival (empty disables)")
	fs.StringVar(&cfg.TierRules, "tier-rules", cfg.TierRules, "tier rules YAML file")
	fs.StringSliceVar(&cfg.Tokens, "token", cfg.Tokens, "API token as token:role, repeatable")
	fs.DurationVar(&cfg.DrawTTL, "draw-ttl", cfg.DrawTTL, "how long a bundle draw waits for finalization")
	fs.IntVarP(&cfg.Verbosity, "verbosity", "v", cfg.Verbosity, "log verbosity")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	defer logger.Init("api-gateway", true, false, io.Discard).Close()
	logger.SetLevel(logger.Level(cfg.Verbosity))
	logger.Info("Starting API Gateway...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules, err := config.LoadTierRules(cfg.TierRules)
	if err != nil {
		return err
	}
	tokens, err := config.ParseTokens(cfg.Tokens)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		logger.Warning("No AUTH_TOKENS configured; every caller is read-only")
	}

	clk := clock.NewSystem()

	var store service.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.Apply(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		store = database.NewStore(pool)
		logger.Info("Connected to PostgreSQL")
	} else {
		store = memstore.New(clk)
		logger.Warning("DATABASE_URL not set; using the in-memory ledger")
	}

	var (
		sinks []events.Sink
		draws service.DrawStore = service.NewMemoryDrawStore(clk)
	)
	if cfg.RedisAddr != "" {
		rdb, err := ledgerRedis.Connect(ctx, ledgerRedis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		sinks = append(sinks, ledgerRedis.NewPublisher(rdb))
		draws = ledgerRedis.NewDrawStore(rdb)
		logger.Info("Connected to Redis")
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		js, err := events.NewJetStreamPublisher(ctx, nc)
		if err != nil {
			return err
		}
		sinks = append(sinks, js)
		logger.Info("Connected to NATS")
	}
	fanout := events.NewFanout(5*time.Second, sinks...)
	defer fanout.Wait()

	svc := handlers.Services{
		Auction: service.NewAuctionService(store, rules, fanout, clk),
		Bundle:  service.NewBundleService(store, draws, fanout, clk, service.WithDrawTTL(cfg.DrawTTL)),
		Lot:     service.NewLotService(store, service.DefaultRand(), fanout, clk),
		Admin:   service.NewAdminService(store, draws, fanout, clk),
		Catalog: service.NewCatalogService(store, fanout, clk),
	}
	handler := handlers.NewHandler(svc, handlers.NewStaticTokens(tokens))

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API Gateway listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
