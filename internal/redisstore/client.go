// Package redisstore keeps hot session state in Redis and provides a
// fail-fast per-session lock that works across processes.
package redisstore

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"interviewhub/internal/errors"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects and pings the server.
func New(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opts.Addr)
	}
	return client, nil
}

func prefixOrDefault(p string) string {
	if p == "" {
		return "imh:"
	}
	return p
}
