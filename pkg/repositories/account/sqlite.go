package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadedpez/rpsarena/pkg/db/migrations"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database and applies migrations
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway and this keeps
	// balance transactions from failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrations.NewMigrator(db).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error applying migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// GetAccount retrieves an account by user ID
func (r *SQLiteRepository) GetAccount(ctx context.Context, userID string) (*entities.Account, error) {
	return r.getAccount(ctx, r.db, userID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) getAccount(ctx context.Context, q queryer, userID string) (*entities.Account, error) {
	query := `SELECT user_id, tokens, rating, wins, losses, created_at, updated_at FROM accounts WHERE user_id = ?`

	var account entities.Account
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.Tokens,
		&account.Rating,
		&account.Wins,
		&account.Losses,
		&account.CreatedAt,
		&account.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("error getting account: %w", err)
	}

	return &account, nil
}

// CreateAccount inserts a new account
func (r *SQLiteRepository) CreateAccount(ctx context.Context, account *entities.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.LastUpdated = time.Now()

	query := `
		INSERT INTO accounts (user_id, tokens, rating, wins, losses, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		account.UserID, account.Tokens, account.Rating, account.Wins, account.Losses,
		account.CreatedAt, account.LastUpdated,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAccountExists
		}
		return fmt.Errorf("error creating account: %w", err)
	}
	return nil
}

// ApplyDelta atomically checks and updates a balance and appends the ledger entry
func (r *SQLiteRepository) ApplyDelta(ctx context.Context, entry *entities.LedgerEntry) (int64, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET tokens = tokens + ?,
			updated_at = ?
		WHERE user_id = ? AND tokens + ? >= 0
	`, entry.Amount, entry.Timestamp, entry.UserID, entry.Amount)
	if err != nil {
		return 0, fmt.Errorf("error updating balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing account from a refused debit
		account, err := r.getAccount(ctx, tx, entry.UserID)
		if err != nil {
			return 0, err
		}
		return account.Tokens, ErrInsufficientBalance
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT tokens FROM accounts WHERE user_id = ?`, entry.UserID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("error reading balance: %w", err)
	}
	entry.BalanceAfter = balance

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, reason, reference_id, balance_after, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Amount, entry.Reason, entry.ReferenceID, entry.BalanceAfter, entry.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("error adding ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing balance change: %w", err)
	}
	return balance, nil
}

// UpdateRecord atomically applies win/loss/rating deltas
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET wins = wins + ?,
			losses = losses + ?,
			rating = rating + ?,
			updated_at = ?
		WHERE user_id = ?
	`, delta.Wins, delta.Losses, delta.Rating, time.Now(), userID)
	if err != nil {
		return nil, fmt.Errorf("error updating record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrAccountNotFound
	}

	account, err := r.getAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing record change: %w", err)
	}
	return account, nil
}

// GetEntries retrieves recent ledger entries for a user, oldest first
func (r *SQLiteRepository) GetEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := `
		SELECT id, user_id, amount, reason, reference_id, balance_after, timestamp
		FROM (
			SELECT rowid, * FROM ledger_entries
			WHERE user_id = ?
			ORDER BY rowid DESC
			LIMIT ?
		)
		ORDER BY rowid ASC
	`
	return r.queryEntries(ctx, query, userID, limit)
}

// GetEntriesByReference retrieves every entry tagged with referenceID
func (r *SQLiteRepository) GetEntriesByReference(ctx context.Context, referenceID string) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, reason, reference_id, balance_after, timestamp
		FROM ledger_entries
		WHERE reference_id = ?
		ORDER BY rowid ASC
	`
	return r.queryEntries(ctx, query, referenceID)
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*entities.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*entities.LedgerEntry, 0)
	for rows.Next() {
		var entry entities.LedgerEntry
		var referenceID sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Amount,
			&entry.Reason,
			&referenceID,
			&entry.BalanceAfter,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("error scanning ledger entry row: %w", err)
		}
		entry.ReferenceID = referenceID.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
