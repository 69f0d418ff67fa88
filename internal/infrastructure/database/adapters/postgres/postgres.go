// Package postgres backs the run-history repository with PostgreSQL via
// sqlx. The pipeline itself never blocks on the database; only history
// reads and writes come through here.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

const pingTimeout = 5 * time.Second

// DB implements ports.Database for PostgreSQL.
type DB struct {
	conn    *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
}

// New opens a pooled connection and verifies it with a bounded ping.
func New(cfg *config.DatabaseConfig, logger observability.Logger, metrics observability.Metrics) (ports.Database, error) {
	logger.Info("Connecting to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database)

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL")
	metrics.IncrementCounter("database.connection.success", map[string]string{"type": "postgres"})

	return &DB{
		conn:    conn,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (d *DB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()

	result, err := d.conn.ExecContext(ctx, query, args...)

	d.recordMetrics("execute", time.Since(start), err)

	if err != nil {
		d.logger.Error("Failed to execute query", "error", err)
		return nil, err
	}

	return result, nil
}

func (d *DB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()

	rows, err := d.conn.QueryContext(ctx, query, args...)

	d.recordMetrics("query", time.Since(start), err)

	if err != nil {
		d.logger.Error("Failed to query", "error", err)
		return nil, err
	}

	return rows, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := d.conn.QueryRowContext(ctx, query, args...)

	d.metrics.RecordHistogram("database.query_row.duration_ms",
		float64(time.Since(start).Milliseconds()), nil)

	return row
}

// Get scans a single row into dest. sql.ErrNoRows passes through so
// callers can treat absence as a normal outcome.
func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()

	err := d.conn.GetContext(ctx, dest, query, args...)

	d.recordMetrics("get", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.logger.Debug("No rows found", "query", query)
		} else {
			d.logger.Error("Failed to get row", "error", err, "query", query)
		}
		return err
	}

	return nil
}

func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()

	err := d.conn.SelectContext(ctx, dest, query, args...)

	d.recordMetrics("select", time.Since(start), err)

	if err != nil {
		d.logger.Error("Failed to select rows", "error", err, "query", query)
		return err
	}

	return nil
}

// Transaction runs fn inside a transaction, rolling back on error or panic.
func (d *DB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) error {
	start := time.Now()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		d.logger.Error("Failed to begin transaction", "error", err)
		return err
	}

	ptx := &pgTx{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ptx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		d.logger.Error("Failed to commit", "error", err)
		return err
	}

	d.recordMetrics("transaction", time.Since(start), nil)
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Close() error {
	d.logger.Info("Closing database connection")
	return d.conn.Close()
}

func (d *DB) recordMetrics(operation string, duration time.Duration, err error) {
	d.metrics.RecordHistogram(
		fmt.Sprintf("database.%s.duration_ms", operation),
		float64(duration.Milliseconds()),
		nil,
	)

	if err != nil {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.errors", operation), nil)
	} else {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.success", operation), nil)
	}
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *pgTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *pgTx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *pgTx) Commit() error {
	return t.tx.Commit()
}

func (t *pgTx) Rollback() error {
	return t.tx.Rollback()
}
