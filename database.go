package relic

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseConfig holds PostgreSQL connection settings. Unset fields
// fall back to the libpq environment variables (PGHOST, PGUSER, ...).
type DatabaseConfig struct {
	Host     string
	Port     int // defaults to 5432
	Database string
	User     string
	Password string // plain or base64-encoded
}

// PostgresConnect opens a PostgreSQL connection pool and verifies it
// with a ping. Base64-encoded passwords are decoded before use.
func PostgresConnect(ctx context.Context, cfg DatabaseConfig) (*pgxpool.Pool, error) {
	password := cfg.Password
	if decoded, ok := fromB64(password); ok {
		password = decoded
	}

	pcfg, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	if cfg.Host != "" {
		pcfg.ConnConfig.Host = cfg.Host
	}
	if cfg.Port != 0 {
		pcfg.ConnConfig.Port = uint16(cfg.Port)
	}
	if cfg.Database != "" {
		pcfg.ConnConfig.Database = cfg.Database
	}
	if cfg.User != "" {
		pcfg.ConnConfig.User = cfg.User
	}
	if password != "" {
		pcfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return pool, nil
}

// fromB64 decodes s when it round-trips through base64, so passwords
// can be stored encoded without a marker.
func fromB64(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	if base64.StdEncoding.EncodeToString(decoded) != s {
		return "", false
	}
	return string(decoded), true
}

type databaseContextKey struct{}

// DatabaseConnection returns middleware that exposes the pool to
// resource methods through the request context. Connections are
// acquired from the pool per query and released afterwards, so the
// middleware only handles the context plumbing.
func DatabaseConnection(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), databaseContextKey{}, pool)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DatabaseFrom retrieves the pool installed by DatabaseConnection, or
// nil when the middleware is not mounted.
func DatabaseFrom(ctx context.Context) *pgxpool.Pool {
	pool, _ := ctx.Value(databaseContextKey{}).(*pgxpool.Pool)
	return pool
}
