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
	"github.com/spf13/pflag"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/config"
	ledgerRedis "github.com/Ideas2IT/I2I-AuctionHub/internal/redis"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/websocket"
)

// Config holds application configuration
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Verbosity     int
}

func loadConfig(args []string) (*Config, error) {
	cfg := &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8081"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		Verbosity:     config.GetEnvInt("LOG_VERBOSITY", 0),
	}

	fs := pflag.NewFlagSet("broadcast-service", pflag.ContinueOnError)
	fs.StringVar(&cfg.ServerAddr, "addr", cfg.ServerAddr, "HTTP listen address")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
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

	defer logger.Init("broadcast-service", true, false, io.Discard).Close()
	logger.SetLevel(logger.Level(cfg.Verbosity))
	logger.Info("Starting Broadcast Service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := ledgerRedis.Connect(ctx, ledgerRedis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	subscriber := ledgerRedis.NewSubscriber(rdb)
	if err := subscriber.SubscribeAll(ctx); err != nil {
		return err
	}
	defer subscriber.Close()
	logger.Info("Subscribed to ledger events")

	manager := websocket.NewManager()
	go manager.Run(ctx)

	messages := make(chan *ledgerRedis.Message, 256)
	go func() {
		if err := subscriber.Listen(ctx, messages); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Redis listener error: %v", err)
			stop()
		}
	}()
	go manager.Forward(ctx, messages)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      websocket.NewHandler(manager).SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Broadcast Service listening on %s", cfg.ServerAddr)
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
