package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/namdevyakhya-17/psycare/internal/booking"
	appconfig "github.com/namdevyakhya-17/psycare/internal/config"
	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/directory"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Database holds the pgx pool and a database/sql view of the same pool.
type Database struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Close releases both handles.
func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// ConnectPostgres opens the pool, or returns nil when no URL is configured.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Database, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return &Database{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}, nil
}

// Stores are the persistence collaborators of the chat router.
type Stores struct {
	Turns        conversation.TurnStore
	Appointments booking.Store
	Directory    directory.UserDirectory
}

// BuildStores uses Postgres when db is set and in-memory stores otherwise.
func BuildStores(db *Database, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	if db == nil || db.Pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return Stores{
			Turns:        conversation.NewMemoryTurnStore(),
			Appointments: booking.NewMemoryStore(),
			Directory:    directory.NewMemoryStore(),
		}
	}
	return Stores{
		Turns:        conversation.NewPostgresTurnStore(db.Pool),
		Appointments: booking.NewPostgresStore(db.Pool),
		Directory:    directory.NewSQLStore(db.SQL),
	}
}
