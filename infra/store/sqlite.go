// Package store persists orders and their transition history in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/commercekit/paybridge/provider"
)

// SQLiteOrderStore stores orders and transitions in a SQLite database.
// It satisfies the provider.OrderStore interface.
type SQLiteOrderStore struct {
	db *sql.DB
}

// NewSQLiteOrderStore opens (and if necessary creates) the order database
// at the given path.
func NewSQLiteOrderStore(dbPath string) (*SQLiteOrderStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// WAL keeps readers unblocked while a callback writes
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	store := &SQLiteOrderStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("SQLite order store initialized at: %s", dbPath)
	return store, nil
}

// NewSQLiteOrderStoreFromDB wraps an existing database handle. Used by tests.
func NewSQLiteOrderStoreFromDB(db *sql.DB) *SQLiteOrderStore {
	return &SQLiteOrderStore{db: db}
}

// initSchema creates the necessary tables
func (s *SQLiteOrderStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		cart_number TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		state TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS payment_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		status_code TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		flagged INTEGER NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		occurred_at DATETIME NOT NULL,
		FOREIGN KEY(order_id) REFERENCES orders(id)
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_order ON payment_transitions(order_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// Put inserts a new order. Fails when the order ID already exists.
func (s *SQLiteOrderStore) Put(ctx context.Context, order *provider.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, cart_number, amount, currency, state, transaction_id) VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.CartNumber, order.Amount.Value.String(), order.Amount.Currency,
		string(order.State), order.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
	}
	return nil
}

// Get loads an order and its transition history.
func (s *SQLiteOrderStore) Get(ctx context.Context, id string) (*provider.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cart_number, amount, currency, state, transaction_id FROM orders WHERE id = ?`, id)

	var (
		order    provider.Order
		amount   string
		currency string
		state    string
	)
	if err := row.Scan(&order.ID, &order.CartNumber, &amount, &currency, &state, &order.TransactionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, provider.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for order %s: %w", id, err)
	}
	order.Amount = provider.Amount{Value: value, Currency: currency}
	order.State = provider.PaymentState(state)

	history, err := s.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	order.History = history

	return &order, nil
}

func (s *SQLiteOrderStore) loadHistory(ctx context.Context, orderID string) ([]provider.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_state, to_state, status_code, transaction_id, flagged, note, occurred_at
		 FROM payment_transitions WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var history []provider.Transition
	for rows.Next() {
		var (
			tr         provider.Transition
			from, to   string
			flagged    int
			occurredAt time.Time
		)
		if err := rows.Scan(&from, &to, &tr.StatusCode, &tr.TransactionID, &flagged, &tr.Note, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.From = provider.PaymentState(from)
		tr.To = provider.PaymentState(to)
		tr.Flagged = flagged != 0
		tr.At = occurredAt.UTC()
		history = append(history, tr)
	}

	return history, rows.Err()
}

// Save updates the order row and appends the transition atomically.
func (s *SQLiteOrderStore) Save(ctx context.Context, order *provider.Order, tr *provider.Transition) error {
	return s.retry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET state = ?, transaction_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(order.State), order.TransactionID, order.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update order %s: %w", order.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return provider.ErrOrderNotFound
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO payment_transitions (order_id, from_state, to_state, status_code, transaction_id, flagged, note, occurred_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, string(tr.From), string(tr.To), tr.StatusCode, tr.TransactionID,
			boolToInt(tr.Flagged), tr.Note, tr.At,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transition for order %s: %w", order.ID, err)
		}

		return tx.Commit()
	}, 3)
}

// retry executes a database operation with backoff for SQLITE_BUSY errors
func (s *SQLiteOrderStore) retry(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked") {
			lastErr = err
			if attempt < maxRetries {
				backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
				time.Sleep(backoff)
				continue
			}
		} else {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

// Close closes the underlying database handle.
func (s *SQLiteOrderStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
