package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/entities"
	accountRepo "github.com/fadedpez/rpsarena/pkg/repositories/account"
)

// DefaultStartingTokens is granted to every account on first sight
const DefaultStartingTokens int64 = 100

// Service owns every token balance mutation. Each successful call appends
// exactly one ledger entry through the repository's atomic ApplyDelta.
type Service struct {
	repo           accountRepo.Repository
	startingTokens int64
}

// NewService creates a new ledger service
func NewService(repo accountRepo.Repository, startingTokens int64) *Service {
	if startingTokens < 0 {
		startingTokens = DefaultStartingTokens
	}
	return &Service{
		repo:           repo,
		startingTokens: startingTokens,
	}
}

// GetOrCreateAccount retrieves an account or creates one with the starting balance.
// The boolean reports whether the account was created by this call.
func (s *Service) GetOrCreateAccount(ctx context.Context, userID string) (*entities.Account, bool, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err == nil {
		return account, false, nil
	}

	if !errors.Is(err, accountRepo.ErrAccountNotFound) {
		return nil, false, s.translate(err, userID)
	}

	account = entities.NewAccount(userID, s.startingTokens)
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, accountRepo.ErrAccountExists) {
			// Lost a creation race; the other caller's account wins
			account, err = s.repo.GetAccount(ctx, userID)
			if err != nil {
				return nil, false, s.translate(err, userID)
			}
			return account, false, nil
		}
		return nil, false, s.translate(err, userID)
	}

	log.Printf("[LEDGER] Created account for user %s with %d tokens", userID, s.startingTokens)
	return account, true, nil
}

// GetAccount retrieves an account snapshot
func (s *Service) GetAccount(ctx context.Context, userID string) (*entities.Account, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, s.translate(err, userID)
	}
	return account, nil
}

// Balance returns the current token balance for a user
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Tokens, nil
}

// DebitIfSufficient removes amount from the balance in one indivisible
// check-and-decrement, or fails with InsufficientFunds leaving it untouched.
func (s *Service) DebitIfSufficient(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error) {
	if amount <= 0 {
		return 0, types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("debit amount must be positive, got %d", amount))
	}

	balance, err := s.repo.ApplyDelta(ctx, &entities.LedgerEntry{
		UserID:      userID,
		Amount:      -amount,
		Reason:      reason,
		ReferenceID: referenceID,
	})
	if err != nil {
		if errors.Is(err, accountRepo.ErrInsufficientBalance) {
			return balance, types.NewGameError(types.ErrInsufficientFunds,
				fmt.Sprintf("balance %d is below the required %d tokens", balance, amount))
		}
		return 0, s.translate(err, userID)
	}

	log.Printf("[LEDGER] Debited %d from %s (%s, ref=%s), balance now %d", amount, userID, reason, referenceID, balance)
	return balance, nil
}

// Credit adds amount to the balance. It only fails for unknown users or storage errors.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error) {
	if amount < 0 {
		return 0, types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("credit amount cannot be negative, got %d", amount))
	}

	balance, err := s.repo.ApplyDelta(ctx, &entities.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
	})
	if err != nil {
		return 0, s.translate(err, userID)
	}

	log.Printf("[LEDGER] Credited %d to %s (%s, ref=%s), balance now %d", amount, userID, reason, referenceID, balance)
	return balance, nil
}

// Transfer moves amount between two accounts as debit-then-credit. If the
// credit fails the debit is reversed with its own logged entry.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, reason entities.LedgerReason, referenceID string) error {
	if _, err := s.DebitIfSufficient(ctx, fromUserID, amount, reason, referenceID); err != nil {
		return err
	}

	if _, err := s.Credit(ctx, toUserID, amount, reason, referenceID); err != nil {
		log.Printf("[LEDGER] Credit to %s failed, reversing debit of %d from %s: %v", toUserID, amount, fromUserID, err)
		if _, revErr := s.Credit(ctx, fromUserID, amount, entities.ReasonReversal, referenceID); revErr != nil {
			log.Printf("[LEDGER] ERROR: reversal for %s failed: %v", fromUserID, revErr)
			return types.WrapError(types.ErrInternalError, "transfer reversal failed", errors.Join(err, revErr))
		}
		return err
	}
	return nil
}

// UpdateRecord applies win/loss/rating deltas atomically
func (s *Service) UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error) {
	account, err := s.repo.UpdateRecord(ctx, userID, delta)
	if err != nil {
		return nil, s.translate(err, userID)
	}
	return account, nil
}

// History returns the most recent ledger entries for a user, oldest first
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	entries, err := s.repo.GetEntries(ctx, userID, limit)
	if err != nil {
		return nil, s.translate(err, userID)
	}
	return entries, nil
}

// EntriesFor returns every entry tagged with a session or tournament ID
func (s *Service) EntriesFor(ctx context.Context, referenceID string) ([]*entities.LedgerEntry, error) {
	entries, err := s.repo.GetEntriesByReference(ctx, referenceID)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "failed to read ledger entries", err)
	}
	return entries, nil
}

// translate maps repository errors onto arena error codes
func (s *Service) translate(err error, userID string) error {
	switch {
	case errors.Is(err, accountRepo.ErrAccountNotFound):
		return types.NewGameError(types.ErrUnknownUser, fmt.Sprintf("no account for user %s", userID))
	case errors.Is(err, accountRepo.ErrInsufficientBalance):
		return types.WrapError(types.ErrInsufficientFunds, "insufficient funds", err)
	}
	return types.WrapError(types.ErrDatabaseError, "ledger storage failure", err)
}
