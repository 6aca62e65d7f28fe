package postgres

import "time"

// PoolOption configures Pool.
type PoolOption func(*PoolConfig)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// WithDSN sets the connection string.
func WithDSN(dsn string) PoolOption {
	return func(c *PoolConfig) {
		c.DSN = dsn
	}
}

// WithMaxConns sets pool size limits.
func WithMaxConns(maxConns, minConns int32) PoolOption {
	return func(c *PoolConfig) {
		if maxConns > 0 {
			c.MaxConns = maxConns
		}
		if minConns >= 0 {
			c.MinConns = minConns
		}
	}
}

// WithConnectTimeout bounds the initial connect and ping.
func WithConnectTimeout(d time.Duration) PoolOption {
	return func(c *PoolConfig) {
		if d > 0 {
			c.ConnectTimeout = d
		}
	}
}

// WithMaxConnLifetime recycles connections older than d.
func WithMaxConnLifetime(d time.Duration) PoolOption {
	return func(c *PoolConfig) {
		c.MaxConnLifetime = d
	}
}
