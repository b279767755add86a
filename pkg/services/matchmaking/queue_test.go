package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify/notifytest"
	accountRepo "github.com/fadedpez/rpsarena/pkg/repositories/account"
	matchRepo "github.com/fadedpez/rpsarena/pkg/repositories/match"
	"github.com/fadedpez/rpsarena/pkg/services/events"
	"github.com/fadedpez/rpsarena/pkg/services/ledger"
	"github.com/fadedpez/rpsarena/pkg/services/match"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"
)

type QueueTestSuite struct {
	suite.Suite
	ctx      context.Context
	accounts *accountRepo.MemoryRepository
	ledger   *ledger.Service
	manager  *match.Manager
	sender   *notifytest.Recorder
	clock    *clockwork.FakeClock
	queue    *Queue
}

func (s *QueueTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.accounts = accountRepo.NewMemoryRepository()
	s.ledger = ledger.NewService(s.accounts, ledger.DefaultStartingTokens)
	s.clock = clockwork.NewFakeClock()
	s.sender = notifytest.NewRecorder()
	s.manager = match.NewManager(s.ledger, events.NewRegistry(s.clock), matchRepo.NewMemoryRepository(), s.sender, s.clock, match.Config{})
	s.queue = NewQueue(s.ledger, s.manager, s.sender, s.clock, []int64{50, 100, 200, 500})
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (s *QueueTestSuite) fund(userID string, tokens int64) {
	s.Require().NoError(s.accounts.CreateAccount(s.ctx, entities.NewAccount(userID, tokens)))
}

func (s *QueueTestSuite) balance(userID string) int64 {
	balance, err := s.ledger.Balance(s.ctx, userID)
	s.Require().NoError(err)
	return balance
}

func (s *QueueTestSuite) escrowCount(userID string) int {
	entries, err := s.ledger.History(s.ctx, userID, 0)
	s.Require().NoError(err)
	count := 0
	for _, entry := range entries {
		if entry.Reason == entities.ReasonStakeEscrow {
			count++
		}
	}
	return count
}

func (s *QueueTestSuite) TestInsufficientFundsCreatesNoTicket() {
	// Setup
	s.fund("alice", 40)

	// Execute
	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 50)

	// Assert
	s.True(types.IsGameError(err, types.ErrInsufficientFunds))
	s.Empty(s.queue.Waiting(50))
	s.Equal(int64(40), s.balance("alice"))
}

func (s *QueueTestSuite) TestUnknownTierRejected() {
	s.fund("alice", 100)

	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 75)

	s.True(types.IsGameError(err, types.ErrInvalidArgument))
	s.Equal([]int64{50, 100, 200, 500}, s.queue.Tiers())
}

func (s *QueueTestSuite) TestQueueThenMatch() {
	s.fund("alice", 100)
	s.fund("bob", 100)

	first, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 100)
	s.Require().NoError(err)
	s.Equal(StatusQueued, first.Status)
	s.Equal(int64(100), s.balance("alice"), "queueing does not escrow")

	second, err := s.queue.EnqueueOrMatch(s.ctx, "bob", 100)
	s.Require().NoError(err)

	s.Equal(StatusMatched, second.Status)
	s.Equal("alice", second.Opponent)
	s.Equal("alice", second.Session.PlayerA.UserID)
	s.Equal("bob", second.Session.PlayerB.UserID)
	s.Equal(entities.SessionAwaitingMoves, second.Session.State)
	s.Zero(s.balance("alice"))
	s.Zero(s.balance("bob"))
	s.Empty(s.queue.Waiting(100))

	// Both players get the move buttons
	msg, ok := s.sender.Last("alice")
	s.Require().True(ok)
	s.Len(msg.Affordances, 3)
	_, ok = s.sender.Last("bob")
	s.True(ok)
}

func (s *QueueTestSuite) TestDifferentStakesDoNotMatch() {
	s.fund("alice", 500)
	s.fund("bob", 500)

	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 50)
	s.Require().NoError(err)
	outcome, err := s.queue.EnqueueOrMatch(s.ctx, "bob", 100)
	s.Require().NoError(err)

	s.Equal(StatusQueued, outcome.Status)
	s.Len(s.queue.Waiting(50), 1)
	s.Len(s.queue.Waiting(100), 1)
}

func (s *QueueTestSuite) TestResubmitReplacesTicket() {
	s.fund("alice", 100)

	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 50)
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	again, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 50)
	s.Require().NoError(err)

	s.Equal(StatusQueued, again.Status)
	s.True(again.Replaced)
	waiting := s.queue.Waiting(50)
	s.Require().Len(waiting, 1)
	s.Equal(s.clock.Now(), waiting[0].QueuedAt)
	s.Equal(int64(100), s.balance("alice"))
}

func (s *QueueTestSuite) TestEscrowFailureVoidsBoth() {
	// Setup: alice queues, then spends her tokens before bob arrives
	s.fund("alice", 100)
	s.fund("bob", 100)
	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 100)
	s.Require().NoError(err)
	_, err = s.ledger.DebitIfSufficient(s.ctx, "alice", 60, entities.ReasonEntryFee, "elsewhere")
	s.Require().NoError(err)

	// Execute
	outcome, err := s.queue.EnqueueOrMatch(s.ctx, "bob", 100)

	// Assert
	s.Require().NoError(err)
	s.Equal(StatusVoided, outcome.Status)
	s.True(types.IsGameError(outcome.Reason, types.ErrSessionVoided))
	s.Equal(entities.SessionVoided, outcome.Session.State)
	s.Empty(s.queue.Waiting(100), "no silent requeue")
	s.Equal(int64(100), s.balance("bob"))
	s.Equal(int64(40), s.balance("alice"))
	s.True(s.sender.Contains("alice", "Battle cancelled"))
	s.Zero(s.manager.LiveCount())
}

func (s *QueueTestSuite) TestCancel() {
	s.fund("alice", 500)
	_, _ = s.queue.EnqueueOrMatch(s.ctx, "alice", 50)
	_, _ = s.queue.EnqueueOrMatch(s.ctx, "alice", 200)

	removed, err := s.queue.Cancel("alice", 50)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.queue.Cancel("alice", 50)
	s.Require().NoError(err)
	s.False(removed)

	_, err = s.queue.Cancel("alice", 75)
	s.True(types.IsGameError(err, types.ErrInvalidArgument))

	s.Equal([]int64{200}, s.queue.CancelAll("alice"))
	s.Empty(s.queue.Waiting(200))
}

func (s *QueueTestSuite) TestConcurrentSamePlayerNeverDoubleCharged() {
	// Setup: bob waits; alice mashes the same stake button
	s.fund("alice", 1000)
	s.fund("bob", 1000)
	_, err := s.queue.EnqueueOrMatch(s.ctx, "bob", 100)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	matched := 0

	// Execute
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.queue.EnqueueOrMatch(context.Background(), "alice", 100)
			if err == nil && outcome.Status == StatusMatched {
				mu.Lock()
				matched++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Assert
	s.Equal(1, matched)
	s.Equal(1, s.escrowCount("alice"))
	s.Equal(int64(900), s.balance("alice"))
	s.Len(s.queue.Waiting(100), 1, "later presses leave one ticket")
}

func (s *QueueTestSuite) TestConcurrentPlayersPairUp() {
	const players = 20
	for i := 0; i < players; i++ {
		s.fund(fmt.Sprintf("player%d", i), 100)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	matched := 0

	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcome, err := s.queue.EnqueueOrMatch(context.Background(), id, 100)
			if err == nil && outcome.Status == StatusMatched {
				mu.Lock()
				matched++
				mu.Unlock()
			}
		}(fmt.Sprintf("player%d", i))
	}
	wg.Wait()

	s.Equal(players/2, matched)
	s.Empty(s.queue.Waiting(100))
	s.Equal(players/2, s.manager.LiveCount())
	for i := 0; i < players; i++ {
		s.Equal(1, s.escrowCount(fmt.Sprintf("player%d", i)))
	}
}

// stalledArchive holds every SaveResult until released
type stalledArchive struct {
	*matchRepo.MemoryRepository
	saving  chan string
	release chan struct{}
}

func (a *stalledArchive) SaveResult(ctx context.Context, result *entities.MatchResult) error {
	a.saving <- result.SessionID
	select {
	case <-a.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.MemoryRepository.SaveResult(ctx, result)
}

func (s *QueueTestSuite) TestStalledArchiveDoesNotHoldTheTier() {
	// Setup
	archive := &stalledArchive{
		MemoryRepository: matchRepo.NewMemoryRepository(),
		saving:           make(chan string, 1),
		release:          make(chan struct{}),
	}
	s.manager = match.NewManager(s.ledger, events.NewRegistry(s.clock), archive, s.sender, s.clock, match.Config{ArchiveTimeout: time.Minute})
	s.queue = NewQueue(s.ledger, s.manager, s.sender, s.clock, []int64{100})

	s.fund("alice", 100)
	s.fund("bob", 100)
	s.fund("carol", 100)
	_, err := s.queue.EnqueueOrMatch(s.ctx, "alice", 100)
	s.Require().NoError(err)
	_, err = s.ledger.DebitIfSufficient(s.ctx, "alice", 60, entities.ReasonEntryFee, "elsewhere")
	s.Require().NoError(err)

	voided, err := s.queue.EnqueueOrMatch(s.ctx, "bob", 100)
	s.Require().NoError(err)
	s.Require().Equal(StatusVoided, voided.Status)

	select {
	case id := <-archive.saving:
		s.Equal(voided.Session.ID, id)
	case <-time.After(2 * time.Second):
		s.FailNow("voided session was never archived")
	}

	// Execute: the archive write is still stuck
	done := make(chan *Outcome, 1)
	go func() {
		outcome, err := s.queue.EnqueueOrMatch(s.ctx, "carol", 100)
		s.NoError(err)
		done <- outcome
	}()

	// Assert
	select {
	case outcome := <-done:
		s.Equal(StatusQueued, outcome.Status)
	case <-time.After(2 * time.Second):
		s.FailNow("stake tier stayed locked while archiving")
	}

	close(archive.release)
	s.manager.Wait()
	archived, err := archive.GetResult(s.ctx, voided.Session.ID)
	s.Require().NoError(err)
	s.Equal(entities.SessionVoided, archived.State)
}
