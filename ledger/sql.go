package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
)

// MySQLStore keeps records in a MySQL table.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, types.NewError(types.ErrConfigError, "MySQL ledger requires a DSN")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS payment_ledger (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        ts DOUBLE NOT NULL,
        tx_id VARCHAR(128) NOT NULL,
        recipient VARCHAR(128) NOT NULL,
        amount VARCHAR(80) NOT NULL,
        status VARCHAR(64) NOT NULL,
        INDEX idx_ledger_ts (ts)
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create payment_ledger: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Append(ctx context.Context, rec types.TransactionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_ledger (ts, tx_id, recipient, amount, status) VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.TxID, rec.Recipient, rec.Amount.String(), string(rec.Status))
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (s *MySQLStore) List(ctx context.Context) ([]types.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, tx_id, recipient, amount, status FROM payment_ledger ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *MySQLStore) Earliest(ctx context.Context) (time.Time, bool, error) {
	var ts sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(ts) FROM payment_ledger`).Scan(&ts); err != nil {
		return time.Time{}, false, fmt.Errorf("query earliest record: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return types.TransactionRecord{Timestamp: ts.Float64}.Time(), true, nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]types.TransactionRecord, error) {
	var out []types.TransactionRecord
	for rows.Next() {
		var (
			rec    types.TransactionRecord
			amount string
			status string
		)
		if err := rows.Scan(&rec.Timestamp, &rec.TxID, &rec.Recipient, &amount, &status); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("ledger amount %q: %w", amount, err)
		}
		rec.Amount = dec
		rec.Status = types.Status(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}

// PostgresStore keeps records in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, types.NewError(types.ErrConfigError, "Postgres ledger requires a DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS payment_ledger (
        id BIGSERIAL PRIMARY KEY,
        ts DOUBLE PRECISION NOT NULL,
        tx_id TEXT NOT NULL,
        recipient TEXT NOT NULL,
        amount TEXT NOT NULL,
        status TEXT NOT NULL
)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create payment_ledger: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec types.TransactionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_ledger (ts, tx_id, recipient, amount, status) VALUES ($1, $2, $3, $4, $5)`,
		rec.Timestamp, rec.TxID, rec.Recipient, rec.Amount.String(), string(rec.Status))
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]types.TransactionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT ts, tx_id, recipient, amount, status FROM payment_ledger ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) Earliest(ctx context.Context) (time.Time, bool, error) {
	var ts *float64
	err := s.pool.QueryRow(ctx, `SELECT MIN(ts) FROM payment_ledger`).Scan(&ts)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, fmt.Errorf("query earliest record: %w", err)
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return types.TransactionRecord{Timestamp: *ts}.Time(), true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
