package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/entities"
	accountRepo "github.com/fadedpez/rpsarena/pkg/repositories/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	repo    *accountRepo.MemoryRepository
	service *Service
	ctx     context.Context
}

func (s *LedgerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = accountRepo.NewMemoryRepository()
	s.service = NewService(s.repo, DefaultStartingTokens)
}

func (s *LedgerTestSuite) fund(userID string, tokens int64) {
	s.Require().NoError(s.repo.CreateAccount(s.ctx, entities.NewAccount(userID, tokens)))
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) TestGetOrCreateAccount() {
	// Execute
	account, created, err := s.service.GetOrCreateAccount(s.ctx, "player1")

	// Assert
	s.Require().NoError(err)
	s.True(created)
	s.Equal(DefaultStartingTokens, account.Tokens)
	s.Equal(entities.DefaultRating, account.Rating)

	// Second call returns the same account untouched
	account, created, err = s.service.GetOrCreateAccount(s.ctx, "player1")
	s.Require().NoError(err)
	s.False(created)
	s.Equal(DefaultStartingTokens, account.Tokens)
}

func (s *LedgerTestSuite) TestDebitIfSufficient() {
	s.fund("player1", 100)

	balance, err := s.service.DebitIfSufficient(s.ctx, "player1", 30, entities.ReasonStakeEscrow, "session-1")

	s.Require().NoError(err)
	s.Equal(int64(70), balance)

	entries, err := s.service.History(s.ctx, "player1", 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(int64(-30), entries[0].Amount)
	s.Equal("session-1", entries[0].ReferenceID)
}

func (s *LedgerTestSuite) TestDebitInsufficientFunds() {
	s.fund("player1", 40)

	_, err := s.service.DebitIfSufficient(s.ctx, "player1", 50, entities.ReasonStakeEscrow, "")

	s.True(types.IsGameError(err, types.ErrInsufficientFunds))
	balance, err := s.service.Balance(s.ctx, "player1")
	s.Require().NoError(err)
	s.Equal(int64(40), balance)
}

func (s *LedgerTestSuite) TestDebitRejectsNonPositiveAmount() {
	s.fund("player1", 40)

	_, err := s.service.DebitIfSufficient(s.ctx, "player1", 0, entities.ReasonStakeEscrow, "")
	s.True(types.IsGameError(err, types.ErrInvalidArgument))

	_, err = s.service.Credit(s.ctx, "player1", -5, entities.ReasonGrant, "")
	s.True(types.IsGameError(err, types.ErrInvalidArgument))
}

func (s *LedgerTestSuite) TestCreditUnknownUser() {
	_, err := s.service.Credit(s.ctx, "ghost", 10, entities.ReasonPrizePayout, "")
	s.True(types.IsGameError(err, types.ErrUnknownUser))

	_, err = s.service.GetAccount(s.ctx, "ghost")
	s.True(types.IsGameError(err, types.ErrUnknownUser))
}

func (s *LedgerTestSuite) TestTransfer() {
	s.fund("alice", 100)
	s.fund("bob", 0)

	s.Require().NoError(s.service.Transfer(s.ctx, "alice", "bob", 60, entities.ReasonGrant, "gift"))

	alice, _ := s.service.Balance(s.ctx, "alice")
	bob, _ := s.service.Balance(s.ctx, "bob")
	s.Equal(int64(40), alice)
	s.Equal(int64(60), bob)

	entries, err := s.service.EntriesFor(s.ctx, "gift")
	s.Require().NoError(err)
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	s.Zero(sum)
}

func (s *LedgerTestSuite) TestTransferToUnknownUserIsReversed() {
	s.fund("alice", 100)

	err := s.service.Transfer(s.ctx, "alice", "ghost", 60, entities.ReasonGrant, "gift")

	s.True(types.IsGameError(err, types.ErrUnknownUser))
	balance, _ := s.service.Balance(s.ctx, "alice")
	s.Equal(int64(100), balance)

	// Both the debit and its reversal are logged
	entries, err := s.service.History(s.ctx, "alice", 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(-60), entries[0].Amount)
	s.Equal(entities.ReasonReversal, entries[1].Reason)
	s.Equal(int64(60), entries[1].Amount)
}

func (s *LedgerTestSuite) TestConcurrentDebitsSerialize() {
	// Setup: enough for exactly five 20-token stakes
	s.fund("player1", 100)

	var wg sync.WaitGroup
	results := make(chan error, 12)

	// Execute
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.DebitIfSufficient(context.Background(), "player1", 20, entities.ReasonStakeEscrow, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Assert
	ok, refused := 0, 0
	for err := range results {
		if err == nil {
			ok++
		} else if types.IsGameError(err, types.ErrInsufficientFunds) {
			refused++
		}
	}
	s.Equal(5, ok)
	s.Equal(7, refused)

	balance, _ := s.service.Balance(s.ctx, "player1")
	s.Zero(balance)
}

// MockRepository is a testify mock of the account repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccount(ctx context.Context, userID string) (*entities.Account, error) {
	args := m.Called(ctx, userID)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.Error(1)
}

func (m *MockRepository) CreateAccount(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) ApplyDelta(ctx context.Context, entry *entities.LedgerEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error) {
	args := m.Called(ctx, userID, delta)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.Error(1)
}

func (m *MockRepository) GetEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockRepository) GetEntriesByReference(ctx context.Context, referenceID string) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, referenceID)
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}

func TestStorageFailureIsDatabaseError(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ApplyDelta", mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full"))
	service := NewService(repo, DefaultStartingTokens)

	_, err := service.Credit(context.Background(), "player1", 10, entities.ReasonPrizePayout, "s1")

	require.Error(t, err)
	assert.True(t, types.IsGameError(err, types.ErrDatabaseError))
	var gameErr *types.GameError
	require.True(t, types.As(err, &gameErr))
	assert.True(t, gameErr.IsInternal())
	repo.AssertExpectations(t)
}

func TestGetOrCreateAccountCreationRace(t *testing.T) {
	repo := new(MockRepository)
	existing := entities.NewAccount("player1", 250)
	repo.On("GetAccount", mock.Anything, "player1").Return(nil, accountRepo.ErrAccountNotFound).Once()
	repo.On("CreateAccount", mock.Anything, mock.Anything).Return(accountRepo.ErrAccountExists)
	repo.On("GetAccount", mock.Anything, "player1").Return(existing, nil).Once()
	service := NewService(repo, DefaultStartingTokens)

	account, created, err := service.GetOrCreateAccount(context.Background(), "player1")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(250), account.Tokens)
	repo.AssertExpectations(t)
}
