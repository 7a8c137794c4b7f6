package app

import (
	"strings"

	"github.com/charlesng35/picketer/internal/cache"
	"github.com/charlesng35/picketer/internal/tasks"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// PoolOptions sizes the background task pool.
func (c TaskConfig) PoolOptions() tasks.Options {
	return tasks.Options{
		Workers:   c.Workers,
		QueueSize: c.QueueSize,
		Timeout:   c.Timeout,
	}
}
