package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	// Write transactions in flight at once; reads go straight to the pool.
	maxConcurrentTx = 10
)

// DB is the shared handle. Every repository call derives its context from
// bounded so no query outlives the configured timeout.
type DB struct {
	*sqlx.DB
	txSlots      *semaphore.Weighted
	queryTimeout time.Duration
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB opens the lib/pq pool once per process.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		var db *sqlx.DB
		db, err = sqlx.Connect("postgres", DSN(cfg))
		if err != nil {
			err = fmt.Errorf("connect postgres: %w", err)
			return
		}

		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)

		dbInstance = Wrap(db, cfg.QueryTimeout())
	})

	return dbInstance, err
}

// Wrap adapts an existing sqlx handle, e.g. one opened with the pgx driver.
func Wrap(db *sqlx.DB, queryTimeout time.Duration) *DB {
	return &DB{
		DB:           db,
		txSlots:      semaphore.NewWeighted(maxConcurrentTx),
		queryTimeout: queryTimeout,
	}
}

// DSN builds a keyword connection string understood by both lib/pq and pgx.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// Ping checks connectivity within the query timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// WithTx runs fn in a transaction, rolling back if fn fails.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.txSlots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire transaction slot: %w", err)
	}
	defer db.txSlots.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
