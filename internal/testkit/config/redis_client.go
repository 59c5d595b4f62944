package config

import (
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter traffic is one INCR per provisioned database, so the pool stays
// small and timeouts short.
const (
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 3 * time.Second
)

func durationOr(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Options builds go-redis options. clientName is reported by CLIENT LIST so
// operators can tell which test process holds a counter connection.
func (c RedisConfig) Options(clientName string) *redis.Options {
	opts := &redis.Options{
		Addr:            c.GetAddr(),
		ClientName:      clientName,
		Password:        c.Password,
		DB:              c.Database,
		MaxRetries:      c.MaxRetries,
		PoolSize:        c.PoolSize,
		MinIdleConns:    c.MinIdleConns,
		DialTimeout:     redisDialTimeout,
		ReadTimeout:     redisIOTimeout,
		WriteTimeout:    redisIOTimeout,
		PoolTimeout:     redisDialTimeout,
		ConnMaxIdleTime: durationOr(c.ConnMaxIdleTime, 30*time.Minute),
		ConnMaxLifetime: durationOr(c.ConnMaxLifetime, time.Hour),
	}
	if c.EnableTLS {
		opts.TLSConfig = &tls.Config{ServerName: c.Host}
	}
	return opts
}

// NewRedisClient connects the shared run counters, naming the connection
// after the application.
func (c *Config) NewRedisClient() *redis.Client {
	return redis.NewClient(c.Redis.Options(c.AppName))
}
