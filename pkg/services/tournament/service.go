package tournament

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/fadedpez/rpsarena/pkg/services/events"
	"github.com/fadedpez/rpsarena/pkg/services/match"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultEntryFee is the entry fee before event modifiers
const DefaultEntryFee int64 = 100

// Ledger is the subset of the ledger service tournaments need
type Ledger interface {
	DebitIfSufficient(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error)
}

// Modifiers applies active event modifiers
type Modifiers interface {
	ApplyActive(target events.Target, value int64) int64
}

// Matches runs the bracket's sessions
type Matches interface {
	StartBracketMatch(tournamentID string, round int, playerA, playerB string, settler match.Settler) match.SessionView
	Abandon(ctx context.Context, sessionID string) bool
}

// JoinOutcome is returned to a player who joined
type JoinOutcome struct {
	Tournament View
	Started    bool // this join closed registration and paired round 1
}

// outbox collects notifications while a tournament is locked; they are sent
// once the lock is released
type outbox []struct {
	playerID string
	msg      notify.Message
}

func (o *outbox) add(playerID string, msg notify.Message) {
	*o = append(*o, struct {
		playerID string
		msg      notify.Message
	}{playerID, msg})
}

func (o *outbox) addAll(playerIDs []string, msg notify.Message) {
	for _, playerID := range playerIDs {
		o.add(playerID, msg)
	}
}

// Service owns the table of live tournaments. Lock order: session, then
// tournament, then the table lock.
type Service struct {
	ledger    Ledger
	modifiers Modifiers
	matches   Matches
	sender    notify.Sender
	clock     clockwork.Clock
	entryFee  int64
	shuffle   func(players []string)

	mu          sync.RWMutex
	tournaments map[string]*Tournament
}

// NewService creates a tournament service
func NewService(ledger Ledger, modifiers Modifiers, matches Matches, sender notify.Sender, clock clockwork.Clock, entryFee int64) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if entryFee <= 0 {
		entryFee = DefaultEntryFee
	}
	return &Service{
		ledger:      ledger,
		modifiers:   modifiers,
		matches:     matches,
		sender:      sender,
		clock:       clock,
		entryFee:    entryFee,
		tournaments: make(map[string]*Tournament),
		shuffle: func(players []string) {
			rand.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
		},
	}
}

func (s *Service) send(out outbox) {
	for _, n := range out {
		s.sender.Send(n.playerID, n.msg)
	}
}

func (s *Service) lookup(tournamentID string) (*Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, types.NewGameError(types.ErrTournamentNotFound, "tournament not found")
	}
	return t, nil
}

func (s *Service) remove(tournamentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tournaments, tournamentID)
}

// Get returns a snapshot of a live tournament
func (s *Service) Get(tournamentID string) (View, error) {
	t, err := s.lookup(tournamentID)
	if err != nil {
		return View{}, err
	}
	return t.View(), nil
}

// Open returns tournaments still taking registrations, oldest first
func (s *Service) Open() []View {
	s.mu.RLock()
	all := make([]*Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		all = append(all, t)
	}
	s.mu.RUnlock()

	open := make([]View, 0, len(all))
	for _, t := range all {
		if v := t.View(); v.Status == entities.TournamentRegistering {
			open = append(open, v)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	return open
}

// Create opens a tournament and registers its creator, who pays the entry
// fee like everyone else.
func (s *Service) Create(ctx context.Context, creatorID string) (View, error) {
	fee := s.modifiers.ApplyActive(events.TargetEntryFee, s.entryFee)
	if fee <= 0 {
		fee = 1
	}

	t := newTournament(uuid.New().String(), creatorID, fee, s.clock.Now())

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := s.ledger.DebitIfSufficient(ctx, creatorID, fee, entities.ReasonEntryFee, t.id); err != nil {
		return View{}, err
	}
	t.players = append(t.players, creatorID)
	t.entrants = append(t.entrants, creatorID)
	t.prizePool += fee

	s.mu.Lock()
	s.tournaments[t.id] = t
	s.mu.Unlock()

	log.Printf("[TOURNAMENT] %s created tournament %s (entry fee %d)", creatorID, t.id, fee)
	return t.viewLocked(), nil
}

// Join registers a player and collects the entry fee. The join that fills the
// last place closes registration and pairs round 1 before returning.
func (s *Service) Join(ctx context.Context, tournamentID, userID string) (*JoinOutcome, error) {
	t, err := s.lookup(tournamentID)
	if err != nil {
		return nil, err
	}

	var out outbox
	defer func() { s.send(out) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case entities.TournamentRegistering:
	case entities.TournamentCancelled:
		return nil, types.NewGameError(types.ErrInvalidState, "this tournament was cancelled")
	default:
		return nil, types.NewGameError(types.ErrTournamentFull, "this tournament is full")
	}
	if t.hasPlayer(userID) {
		return nil, types.NewGameError(types.ErrAlreadyJoined, "you have already joined this tournament")
	}
	if len(t.players) >= entities.TournamentCapacity {
		return nil, types.NewGameError(types.ErrTournamentFull, "this tournament is full")
	}

	if _, err := s.ledger.DebitIfSufficient(ctx, userID, t.entryFee, entities.ReasonEntryFee, t.id); err != nil {
		return nil, err
	}
	t.players = append(t.players, userID)
	t.entrants = append(t.entrants, userID)
	t.prizePool += t.entryFee

	log.Printf("[TOURNAMENT] %s joined %s (%d/%d)", userID, t.id, len(t.players), entities.TournamentCapacity)
	out.addAll(t.players, joinedMessage(t.viewLocked(), userID))

	started := false
	if len(t.players) == entities.TournamentCapacity {
		t.status = entities.TournamentInProgress
		log.Printf("[TOURNAMENT] %s is full, starting round 1", t.id)
		if err := s.startRoundLocked(ctx, t, &out); err != nil {
			return nil, err
		}
		started = true
	}

	return &JoinOutcome{Tournament: t.viewLocked(), Started: started}, nil
}

// Cancel closes a tournament that is still registering and refunds every
// entry fee. Only the creator may cancel.
func (s *Service) Cancel(ctx context.Context, tournamentID, userID string) (View, error) {
	t, err := s.lookup(tournamentID)
	if err != nil {
		return View{}, err
	}

	var out outbox
	defer func() { s.send(out) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.creatorID != userID {
		return View{}, types.NewGameError(types.ErrNotCreator, "only the tournament creator can cancel it")
	}
	if t.status != entities.TournamentRegistering {
		return View{}, types.NewGameError(types.ErrInvalidState, fmt.Sprintf("tournament is %s", t.status))
	}

	t.status = entities.TournamentCancelled
	s.refundEntriesLocked(ctx, t)
	s.remove(t.id)

	log.Printf("[TOURNAMENT] %s cancelled by its creator", t.id)
	out.addAll(t.entrants, cancelledMessage(t.viewLocked(), "the creator cancelled it"))
	return t.viewLocked(), nil
}

// startRoundLocked pairs the remaining players into bracket sessions
func (s *Service) startRoundLocked(ctx context.Context, t *Tournament, out *outbox) error {
	if len(t.players) < 2 || len(t.players)%2 != 0 {
		return s.corruptLocked(ctx, t, out, fmt.Sprintf("cannot pair %d players", len(t.players)))
	}

	t.round++
	order := append([]string(nil), t.players...)
	s.shuffle(order)

	settler := &bracketSettler{s: s, t: t}
	for i := 0; i < len(order); i += 2 {
		view := s.matches.StartBracketMatch(t.id, t.round, order[i], order[i+1], settler)
		t.matches[t.round] = append(t.matches[t.round], view.ID)
		t.pending[view.ID] = true

		msg := match.BracketStartMessage(view)
		out.add(order[i], msg)
		out.add(order[i+1], msg)
	}

	log.Printf("[TOURNAMENT] %s round %d paired: %d matches", t.id, t.round, len(order)/2)
	return nil
}

// corruptLocked forces the tournament cancelled and refunds every entrant.
// Open sessions are abandoned once the tournament lock is released.
func (s *Service) corruptLocked(ctx context.Context, t *Tournament, out *outbox, detail string) error {
	log.Printf("[TOURNAMENT] ERROR: bracket corruption in %s: %s", t.id, detail)

	t.status = entities.TournamentCancelled
	s.refundEntriesLocked(ctx, t)
	s.remove(t.id)

	out.addAll(t.entrants, cancelledMessage(t.viewLocked(), "something went wrong with the bracket"))
	return types.NewGameError(types.ErrBracketCorruption, detail)
}

func (s *Service) refundEntriesLocked(ctx context.Context, t *Tournament) {
	for _, userID := range t.entrants {
		if _, err := s.ledger.Credit(ctx, userID, t.entryFee, entities.ReasonEntryRefund, t.id); err != nil {
			log.Printf("[TOURNAMENT] ERROR: entry refund of %d to %s for %s failed: %v", t.entryFee, userID, t.id, err)
			continue
		}
		t.prizePool -= t.entryFee
	}
}

// abandon voids the tournament's undecided sessions, skipping the one
// currently settling
func (s *Service) abandon(ctx context.Context, sessionIDs []string, skip string) {
	for _, id := range sessionIDs {
		if id != skip {
			s.matches.Abandon(ctx, id)
		}
	}
}
