package tournament

import (
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

// Prize split of the pool, in percent
const (
	WinnerPercent      = 70
	RunnerUpPercent    = 20
	SemifinalsPercent  = 10 // shared evenly by the semi-finalists
	semifinalistsCount = 2
)

// Tournament is an 8-player single elimination bracket. All fields are
// guarded by mu.
type Tournament struct {
	mu sync.Mutex

	id        string
	creatorID string
	entryFee  int64
	prizePool int64
	status    entities.TournamentStatus
	round     int
	createdAt time.Time

	players    []string         // join order; shrinks by elimination once in progress
	entrants   []string         // everyone who paid the entry fee
	matches    map[int][]string // round -> session IDs
	pending    map[string]bool  // undecided sessions of the current round
	eliminated map[int][]string // round -> losers, in elimination order
}

// View is a read-only snapshot of a tournament
type View struct {
	ID         string
	CreatorID  string
	EntryFee   int64
	PrizePool  int64
	Status     entities.TournamentStatus
	Round      int
	Players    []string
	Entrants   []string
	Matches    map[int][]string
	Pending    []string
	Eliminated map[int][]string
	CreatedAt  time.Time
}

// Spots returns how many places are left in registration
func (v View) Spots() int {
	if v.Status != entities.TournamentRegistering {
		return 0
	}
	return entities.TournamentCapacity - len(v.Players)
}

func newTournament(id, creatorID string, entryFee int64, now time.Time) *Tournament {
	return &Tournament{
		id:         id,
		creatorID:  creatorID,
		entryFee:   entryFee,
		status:     entities.TournamentRegistering,
		createdAt:  now,
		players:    make([]string, 0, entities.TournamentCapacity),
		entrants:   make([]string, 0, entities.TournamentCapacity),
		matches:    make(map[int][]string),
		pending:    make(map[string]bool),
		eliminated: make(map[int][]string),
	}
}

// ID returns the tournament's immutable ID
func (t *Tournament) ID() string {
	return t.id
}

// View returns a snapshot of the tournament
func (t *Tournament) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

func (t *Tournament) viewLocked() View {
	matches := make(map[int][]string, len(t.matches))
	for round, ids := range t.matches {
		matches[round] = append([]string(nil), ids...)
	}
	eliminated := make(map[int][]string, len(t.eliminated))
	for round, ids := range t.eliminated {
		eliminated[round] = append([]string(nil), ids...)
	}
	pending := make([]string, 0, len(t.pending))
	for _, id := range t.matches[t.round] {
		if t.pending[id] {
			pending = append(pending, id)
		}
	}

	return View{
		ID:         t.id,
		CreatorID:  t.creatorID,
		EntryFee:   t.entryFee,
		PrizePool:  t.prizePool,
		Status:     t.status,
		Round:      t.round,
		Players:    append([]string(nil), t.players...),
		Entrants:   append([]string(nil), t.entrants...),
		Matches:    matches,
		Pending:    pending,
		Eliminated: eliminated,
		CreatedAt:  t.createdAt,
	}
}

func (t *Tournament) hasPlayer(userID string) bool {
	for _, p := range t.players {
		if p == userID {
			return true
		}
	}
	return false
}

func (t *Tournament) removePlayer(userID string) bool {
	for i, p := range t.players {
		if p == userID {
			t.players = append(t.players[:i], t.players[i+1:]...)
			return true
		}
	}
	return false
}

// payout is one prize owed at completion
type payout struct {
	userID string
	place  string
	amount int64
}

// prizesLocked splits the pool between the winner, the runner-up and the
// semi-finalists. Rounding remainders stay unallocated.
func (t *Tournament) prizesLocked() []payout {
	if len(t.players) != 1 {
		return nil
	}

	payouts := []payout{{userID: t.players[0], place: "winner", amount: t.prizePool * WinnerPercent / 100}}
	if finalists := t.eliminated[t.round]; len(finalists) > 0 {
		payouts = append(payouts, payout{userID: finalists[0], place: "runner-up", amount: t.prizePool * RunnerUpPercent / 100})
	}
	share := t.prizePool * SemifinalsPercent / 100 / semifinalistsCount
	for _, userID := range t.eliminated[t.round-1] {
		payouts = append(payouts, payout{userID: userID, place: "semi-finalist", amount: share})
	}
	return payouts
}
