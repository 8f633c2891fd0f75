package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rentdash/apps/worker/internal/config"
	"rentdash/apps/worker/internal/log"
	"rentdash/apps/worker/internal/mail"
	"rentdash/apps/worker/internal/queue"
	"rentdash/apps/worker/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Logging.Level)

	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: "rentdash-worker",
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(logger, mail.New(cfg.Mail, logger))
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:            cfg.Redis.Stream,
		Group:             cfg.Redis.Group,
		Consumer:          cfg.Redis.Consumer,
		ClaimInterval:     cfg.Queues.ClaimInterval,
		VisibilityTimeout: cfg.Queues.VisibilityTimeout,
	}, logger, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
