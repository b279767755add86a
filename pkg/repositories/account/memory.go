package account

import (
	"context"
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/google/uuid"
)

// accountRecord serializes mutations of a single account
type accountRecord struct {
	mu      sync.Mutex
	account entities.Account
}

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	mu       sync.RWMutex // protects the accounts map, not the records
	accounts map[string]*accountRecord

	logMu   sync.RWMutex
	entries []*entities.LedgerEntry
}

// NewMemoryRepository creates a new in-memory account repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]*accountRecord),
		entries:  make([]*entities.LedgerEntry, 0),
	}
}

func (r *MemoryRepository) record(userID string) (*accountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.accounts[userID]
	if !exists {
		return nil, ErrAccountNotFound
	}
	return rec, nil
}

// GetAccount retrieves an account by user ID
func (r *MemoryRepository) GetAccount(ctx context.Context, userID string) (*entities.Account, error) {
	rec, err := r.record(userID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// Return a copy to prevent concurrent modification
	accountCopy := rec.account
	return &accountCopy, nil
}

// CreateAccount inserts a new account
func (r *MemoryRepository) CreateAccount(ctx context.Context, account *entities.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.UserID]; exists {
		return ErrAccountExists
	}

	rec := &accountRecord{account: *account}
	if rec.account.CreatedAt.IsZero() {
		rec.account.CreatedAt = time.Now()
	}
	rec.account.LastUpdated = time.Now()
	r.accounts[account.UserID] = rec

	return nil
}

// ApplyDelta atomically checks and updates a balance and appends the ledger entry
func (r *MemoryRepository) ApplyDelta(ctx context.Context, entry *entities.LedgerEntry) (int64, error) {
	rec, err := r.record(entry.UserID)
	if err != nil {
		return 0, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	newBalance := rec.account.Tokens + entry.Amount
	if newBalance < 0 {
		return rec.account.Tokens, ErrInsufficientBalance
	}

	rec.account.Tokens = newBalance
	rec.account.LastUpdated = time.Now()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.BalanceAfter = newBalance

	// The entry is appended while the account is still held so that entries
	// for one account are logged in mutation order.
	entryCopy := *entry
	r.logMu.Lock()
	r.entries = append(r.entries, &entryCopy)
	r.logMu.Unlock()

	return newBalance, nil
}

// UpdateRecord atomically applies win/loss/rating deltas
func (r *MemoryRepository) UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error) {
	rec, err := r.record(userID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.account.Wins += delta.Wins
	rec.account.Losses += delta.Losses
	rec.account.Rating += delta.Rating
	rec.account.LastUpdated = time.Now()

	accountCopy := rec.account
	return &accountCopy, nil
}

// GetEntries retrieves recent ledger entries for a user
func (r *MemoryRepository) GetEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	r.logMu.RLock()
	defer r.logMu.RUnlock()

	matching := make([]*entities.LedgerEntry, 0)
	for _, entry := range r.entries {
		if entry.UserID == userID {
			matching = append(matching, entry)
		}
	}

	start := 0
	if limit > 0 && len(matching) > limit {
		start = len(matching) - limit
	}

	result := make([]*entities.LedgerEntry, 0, len(matching)-start)
	for _, entry := range matching[start:] {
		entryCopy := *entry
		result = append(result, &entryCopy)
	}
	return result, nil
}

// GetEntriesByReference retrieves every entry tagged with referenceID
func (r *MemoryRepository) GetEntriesByReference(ctx context.Context, referenceID string) ([]*entities.LedgerEntry, error) {
	r.logMu.RLock()
	defer r.logMu.RUnlock()

	result := make([]*entities.LedgerEntry, 0)
	for _, entry := range r.entries {
		if entry.ReferenceID == referenceID {
			entryCopy := *entry
			result = append(result, &entryCopy)
		}
	}
	return result, nil
}

// Close is a no-op for the memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
