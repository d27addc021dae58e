package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the Redis-backed document store. A single client
// suffices; the data layer serializes its own read-modify-write cycles.
// An unreachable server is not an error: the service boots offline and the
// connectivity prober flips it online once Redis answers.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis not reachable yet, starting offline: %v", err)
	}

	return client, nil
}
