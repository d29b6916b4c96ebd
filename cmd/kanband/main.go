package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/kanban/internal/cards"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/server"
	"github.com/gosuda/kanban/internal/store/memory"
	"github.com/gosuda/kanban/internal/store/postgres"
	redisstore "github.com/gosuda/kanban/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	config.SetupLogging(os.Stdout)

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		repo   domain.CardRepository
		checks []server.HealthCheck
		opts   []cards.Option
	)

	if cfg.Database.Host != "" {
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = store.Cards()
		checks = append(checks, server.HealthCheck{Name: "postgres", Check: store.Ping})
	} else {
		log.Warn().Msg("KANBAN_DB_HOST not set; cards are kept in memory")
		repo = memory.NewCardRepo()
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()

		opts = append(opts,
			cards.WithDeduper(redisstore.NewDeduper(client, cfg.Board.IdempotencyTTL)),
			cards.WithPublisher(redisstore.NewPubSub(client), redisstore.BoardChannel(cfg.Board.Name)),
		)
		checks = append(checks, server.HealthCheck{Name: "redis", Check: redisPing(client)})
	}

	svc := cards.NewService(repo, cfg.Board.Statuses(), opts...)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, svc, checks...)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Strs("columns", cfg.Board.Statuses()).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

func redisPing(client *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
