package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"campuslife/internal/config"
	"campuslife/internal/logger"
	"campuslife/internal/mess"
	"campuslife/internal/queue"
	"campuslife/internal/store"
)

// Worker consumes redemption messages and keeps per-sitting counters fresh.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisDialTimeout)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "mess:redemptions")
	}

	counters := mess.NewCounters(redisClient.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != "redemption" {
			continue
		}

		var evt mess.RedemptionEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Warn().Err(err).Msg("bad redemption payload")
			continue
		}
		if !evt.Meal.Valid() {
			log.Warn().Str("meal", string(evt.Meal)).Msg("unknown meal in payload")
			continue
		}

		if err := counters.Incr(ctx, evt.Date, evt.Meal); err != nil {
			log.Warn().Err(err).Str("date", evt.Date).Str("meal", string(evt.Meal)).Msg("counter update failed")
			continue
		}
		log.Debug().Str("date", evt.Date).Str("meal", string(evt.Meal)).Msg("counter updated")
	}

	log.Info().Msg("worker stopped")
}
