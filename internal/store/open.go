package store

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string // "sqlite" (default), "redis" or "memory"
	Driver    string // sqlite driver: DriverCGO or DriverPure
	Path      string // sqlite database file
	RedisAddr string
	RedisTTL  time.Duration
}

// Open builds a Store over the backend named in opts.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		kv, err := OpenSQLite(opts.Driver, opts.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("[store] sqlite (%s) at %s", driverName(opts.Driver), opts.Path)
		return New(kv), nil
	case "redis":
		kv, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisTTL)
		if err != nil {
			return nil, err
		}
		log.Printf("[store] redis at %s", opts.RedisAddr)
		return New(kv), nil
	case "memory":
		log.Printf("[store] in-memory, state is lost on exit")
		return New(NewMemoryKV()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func driverName(d string) string {
	if d == "" {
		return DriverCGO
	}
	return d
}
