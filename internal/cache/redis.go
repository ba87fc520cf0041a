// Package cache backs two small city-cache coordination concerns with
// Redis: a distributed advisory lock so only one process rebuilds a given
// city's cache at a time, and last-built metadata other processes can poll
// instead of racing the rebuild themselves.
package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LoadConfigFromEnv loads Redis configuration from environment variables.
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return &Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

// GetClient returns the global Redis client (singleton pattern).
func GetClient() (*redis.Client, error) {
	clientOnce.Do(func() {
		config := LoadConfigFromEnv()

		opts := &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}
		if getEnv("REDIS_TLS_ENABLED", "false") == "true" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}

		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("connect to redis: %w", err)
		}
	})
	return client, clientErr
}

// Close closes the Redis client.
func Close() {
	if client != nil {
		client.Close()
	}
}

func buildLockKey(cityName string) string { return fmt.Sprintf("citybuild:lock:%s", cityName) }
func lastBuiltKey(cityName string) string { return fmt.Sprintf("citybuild:last_built:%s", cityName) }

// AcquireBuildLock attempts to take the distributed rebuild lock for
// cityName, returning true if this caller now holds it. ttl bounds how
// long the lock survives a crashed holder.
func AcquireBuildLock(ctx context.Context, cityName string, ttl time.Duration) (bool, error) {
	client, err := GetClient()
	if err != nil {
		return false, err
	}
	return client.SetNX(ctx, buildLockKey(cityName), "1", ttl).Result()
}

// ReleaseBuildLock releases the rebuild lock for cityName.
func ReleaseBuildLock(ctx context.Context, cityName string) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	return client.Del(ctx, buildLockKey(cityName)).Err()
}

// WaitForBuild polls until cityName's rebuild lock is released or maxWait
// elapses, letting a losing caller wait for the winner's rebuild instead of
// duplicating it.
func WaitForBuild(ctx context.Context, cityName string, maxWait time.Duration) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	lockKey := buildLockKey(cityName)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := client.Exists(ctx, lockKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for city build lock %q", cityName)
}

// SetLastBuilt records the time cityName's cache was last (re)built.
func SetLastBuilt(ctx context.Context, cityName string, at time.Time) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	return client.Set(ctx, lastBuiltKey(cityName), at.Unix(), 0).Err()
}

// LastBuilt returns the time cityName's cache was last (re)built, or the
// zero time if no record exists.
func LastBuilt(ctx context.Context, cityName string) (time.Time, error) {
	client, err := GetClient()
	if err != nil {
		return time.Time{}, err
	}
	unix, err := client.Get(ctx, lastBuiltKey(cityName)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
