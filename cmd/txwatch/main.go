package main

import (
	"context"
	"log"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/handlers/cli"
	"github.com/gabapcia/txwatch/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/txwatch/internal/infra/storage/redis"
	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/txwatch/internal/pkg/telemetry"
	httptransport "github.com/gabapcia/txwatch/internal/pkg/transport/http"
	"github.com/gabapcia/txwatch/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txwatch/internal/pkg/validator"
	"github.com/gabapcia/txwatch/internal/txmanager"

	"github.com/kelseyhightower/envconfig"
)

// appConfig is the environment-driven configuration for the txwatch binary.
type appConfig struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"txwatch"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`

	Network       string `envconfig:"NETWORK" default:"ethereum" validate:"required"`
	NodeEndpoint  string `envconfig:"NODE_ENDPOINT" required:"true" validate:"required,url"`
	Confirmations int    `envconfig:"CONFIRMATIONS" default:"0" validate:"gte=0"`

	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	if err := envconfig.Process("txwatch", &cfg); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := validator.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Telemetry must be up before the logger so the OTLP bridge is wired in.
	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			log.Fatalf("failed to initialize telemetry: %v", err)
		}
		defer func() {
			_ = shutdown(ctx)
		}()
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	httpClient := httptransport.NewClient().StandardClient()
	node := ethereum.NewClient(jsonrpc.NewClient(httpClient, cfg.NodeEndpoint))

	trackerOpts := []blocktracker.Option{
		blocktracker.WithRetry(retry.New()),
	}
	managerOpts := []txmanager.Option{
		txmanager.WithDefaultConfirmations(cfg.Confirmations),
	}

	if cfg.RedisEnabled {
		store, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal(ctx, "failed to connect to redis", "error", err)
		}
		defer store.Close()

		trackerOpts = append(trackerOpts, blocktracker.WithCheckpointStorage(store))
		managerOpts = append(managerOpts, txmanager.WithStageStore(store))
	}

	tracker := blocktracker.New(cfg.Network, node, trackerOpts...)
	manager := txmanager.New(node, tracker, managerOpts...)

	if err := cli.Run(ctx, tracker, manager); err != nil {
		logger.Fatal(ctx, "txwatch terminated", "error", err)
	}
}
