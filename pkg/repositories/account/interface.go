package account

import (
	"context"
	"errors"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Repository is the profile store. Balance changes go through ApplyDelta,
// which checks, updates and logs in one indivisible step.
type Repository interface {
	// GetAccount retrieves an account snapshot by user ID
	GetAccount(ctx context.Context, userID string) (*entities.Account, error)

	// CreateAccount inserts a new account, failing with ErrAccountExists
	CreateAccount(ctx context.Context, account *entities.Account) error

	// ApplyDelta adds entry.Amount to the balance unless the result would be
	// negative (ErrInsufficientBalance), then appends entry with BalanceAfter
	// filled in. Returns the new balance.
	ApplyDelta(ctx context.Context, entry *entities.LedgerEntry) (int64, error)

	// UpdateRecord atomically applies win/loss/rating deltas
	UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error)

	// GetEntries retrieves the most recent ledger entries for a user, oldest first
	GetEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error)

	// GetEntriesByReference retrieves every entry tagged with a session or tournament ID
	GetEntriesByReference(ctx context.Context, referenceID string) ([]*entities.LedgerEntry, error)

	// Close closes any resources used by the repository
	Close() error
}
