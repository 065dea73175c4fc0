package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("db: not found")
	// ErrConflict is returned when a unique constraint rejects the write
	ErrConflict = errors.New("db: conflict")
	// ErrStaleStatus is returned when a conditional status update matched no row
	ErrStaleStatus = errors.New("db: status changed concurrently")
	// ErrNoSwapCredits is returned when a user has no swap credits left
	ErrNoSwapCredits = errors.New("db: no swap credits left")
)

// Store runs all queries of the application against a connection pool
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Connect opens the connection pool
func Connect(cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	log.Info("connecting to database",
		zap.String("host", cfg.DatabaseConfig.Host),
		zap.String("database", cfg.DatabaseConfig.Name))

	// Connection attempt gets its own timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to database")
	return pool, nil
}

// GetContext returns a context with the default query timeout
func GetContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// notFound maps pgx.ErrNoRows to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isCheckViolation reports whether err is a check_violation (23514)
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
