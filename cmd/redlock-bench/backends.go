package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lockforge/redlock/pkg/postgreskv"
	"github.com/lockforge/redlock/pkg/rediskv"
	"github.com/lockforge/redlock/pkg/redlock"
	"github.com/lockforge/redlock/pkg/sqlitekv"
)

// buildBackends dials one redlock.ServerClient per DSN, dispatching on
// scheme: sqlite://, redis://, or postgres://.
func buildBackends(ctx context.Context, dsns []string) ([]redlock.ServerClient, func(), error) {
	servers := make([]redlock.ServerClient, 0, len(dsns))
	closers := make([]func(), 0, len(dsns))

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, dsn := range dsns {
		sc, closer, err := buildBackend(ctx, dsn)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("backend %q: %w", dsn, err)
		}
		servers = append(servers, sc)
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	return servers, closeAll, nil
}

func buildBackend(ctx context.Context, dsn string) (redlock.ServerClient, func(), error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, nil, err
	}

	switch u.Scheme {
	case "sqlite":
		path := strings.TrimPrefix(dsn, "sqlite://")
		c, err := sqlitekv.Open(ctx, sqlitekv.Config{Path: path})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil

	case "redis":
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return rediskv.New(rdb), func() { _ = rdb.Close() }, nil

	case "postgres", "postgresql":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		c := postgreskv.New(pool)
		if err := c.Bootstrap(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return c, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
}
