package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campustap/internal/config"
	"campustap/internal/queue"
	"campustap/internal/store"
)

// Worker consumes tap events and maintains per-session live attendance
// counters in Redis so dashboards can poll a cheap key instead of the
// database.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, retrying as events arrive", cfg.RedisAddr)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campustap:taps")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for tap events...")
	for msg := range messages {
		if msg.Type != "tap" {
			continue
		}

		var evt queue.TapEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad tap event: %v", err)
			continue
		}

		key := store.LiveCountKey(evt.SessionID)
		count, err := redisClient.Client.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("incr %s failed: %v", key, err)
			continue
		}
		// Counters expire on their own; a closed session stops being
		// polled long before a day passes.
		_ = redisClient.Client.Expire(ctx, key, 24*time.Hour).Err()

		log.Printf("session %d: %d present (module %d)", evt.SessionID, count, evt.ModuleID)
	}

	log.Println("worker stopped")
}
