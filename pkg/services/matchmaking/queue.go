package matchmaking

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/fadedpez/rpsarena/pkg/services/match"
	"github.com/jonboulle/clockwork"
)

// Balances reads token balances without changing them
type Balances interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

// DuelStarter creates and escrows a 1v1 session
type DuelStarter interface {
	StartDuel(ctx context.Context, playerA, playerB string, stake int64) (match.SessionView, error)
}

// Status is the result of a stake selection
type Status int

const (
	StatusQueued Status = iota
	StatusMatched
	StatusVoided
)

// String returns a readable status
func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "MATCHED"
	case StatusVoided:
		return "VOIDED"
	}
	return "QUEUED"
}

// Ticket is a player waiting for an opponent at one stake
type Ticket struct {
	PlayerID string
	Stake    int64
	QueuedAt time.Time
}

// Outcome is returned to the player who selected a stake
type Outcome struct {
	Status   Status
	Session  match.SessionView // set when Matched or Voided
	Opponent string            // set when Matched or Voided
	Replaced bool              // the player's existing ticket was refreshed
	Reason   error             // set when Voided
}

// tier is one stake's waiting list. Scan-and-pair runs entirely under mu.
type tier struct {
	mu      sync.Mutex
	tickets []Ticket
}

// Queue pairs waiting players with equal stakes
type Queue struct {
	balances Balances
	duels    DuelStarter
	sender   notify.Sender
	clock    clockwork.Clock

	tiers map[int64]*tier // fixed at construction, read-only afterwards
	order []int64
}

// NewQueue creates a queue accepting the given stake tiers
func NewQueue(balances Balances, duels DuelStarter, sender notify.Sender, clock clockwork.Clock, stakeTiers []int64) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	q := &Queue{
		balances: balances,
		duels:    duels,
		sender:   sender,
		clock:    clock,
		tiers:    make(map[int64]*tier, len(stakeTiers)),
	}
	for _, stake := range stakeTiers {
		if stake <= 0 {
			continue
		}
		if _, exists := q.tiers[stake]; !exists {
			q.tiers[stake] = &tier{tickets: make([]Ticket, 0)}
			q.order = append(q.order, stake)
		}
	}
	sort.Slice(q.order, func(i, j int) bool { return q.order[i] < q.order[j] })
	return q
}

// Tiers returns the accepted stakes in ascending order
func (q *Queue) Tiers() []int64 {
	return append([]int64(nil), q.order...)
}

func (q *Queue) tier(stake int64) (*tier, error) {
	t, ok := q.tiers[stake]
	if !ok {
		return nil, types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("%d is not an accepted stake", stake))
	}
	return t, nil
}

// EnqueueOrMatch pairs the player with the longest-waiting opponent at the
// same stake, or queues them. A match is escrowed before this returns; if
// escrow fails both players get Voided and neither stays queued.
func (q *Queue) EnqueueOrMatch(ctx context.Context, playerID string, stake int64) (*Outcome, error) {
	t, err := q.tier(stake)
	if err != nil {
		return nil, err
	}

	balance, err := q.balances.Balance(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if balance < stake {
		return nil, types.NewGameError(types.ErrInsufficientFunds,
			fmt.Sprintf("you need %d tokens for this stake, you have %d", stake, balance))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, ticket := range t.tickets {
		if ticket.PlayerID == playerID {
			continue
		}

		t.tickets = append(t.tickets[:i], t.tickets[i+1:]...)
		t.removePlayer(playerID)

		log.Printf("[QUEUE] Matched %s with %s at %d tokens", playerID, ticket.PlayerID, stake)
		session, err := q.duels.StartDuel(ctx, ticket.PlayerID, playerID, stake)
		if err != nil {
			if !types.IsGameError(err, types.ErrSessionVoided) {
				return nil, err
			}
			q.sender.Send(ticket.PlayerID, notify.Text("❌ Battle cancelled: one of the players couldn't cover the stake. You have been removed from the queue."))
			return &Outcome{Status: StatusVoided, Session: session, Opponent: ticket.PlayerID, Reason: err}, nil
		}
		return &Outcome{Status: StatusMatched, Session: session, Opponent: ticket.PlayerID}, nil
	}

	now := q.clock.Now()
	for i := range t.tickets {
		if t.tickets[i].PlayerID == playerID {
			t.tickets[i].QueuedAt = now
			log.Printf("[QUEUE] %s re-selected %d tokens, ticket refreshed", playerID, stake)
			return &Outcome{Status: StatusQueued, Replaced: true}, nil
		}
	}

	t.tickets = append(t.tickets, Ticket{PlayerID: playerID, Stake: stake, QueuedAt: now})
	log.Printf("[QUEUE] %s queued at %d tokens", playerID, stake)
	return &Outcome{Status: StatusQueued}, nil
}

// removePlayer drops any ticket held by playerID; caller holds mu
func (t *tier) removePlayer(playerID string) bool {
	for i, ticket := range t.tickets {
		if ticket.PlayerID == playerID {
			t.tickets = append(t.tickets[:i], t.tickets[i+1:]...)
			return true
		}
	}
	return false
}

// Cancel removes the player's ticket at one stake. Returns false if none was queued.
func (q *Queue) Cancel(playerID string, stake int64) (bool, error) {
	t, err := q.tier(stake)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := t.removePlayer(playerID)
	if removed {
		log.Printf("[QUEUE] %s left the %d token queue", playerID, stake)
	}
	return removed, nil
}

// CancelAll removes the player from every tier and returns the stakes they left
func (q *Queue) CancelAll(playerID string) []int64 {
	left := make([]int64, 0)
	for _, stake := range q.order {
		if removed, _ := q.Cancel(playerID, stake); removed {
			left = append(left, stake)
		}
	}
	return left
}

// Waiting returns a snapshot of the tickets queued at a stake
func (q *Queue) Waiting(stake int64) []Ticket {
	t, ok := q.tiers[stake]
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Ticket(nil), t.tickets...)
}
