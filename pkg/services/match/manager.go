package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
	matchRepo "github.com/fadedpez/rpsarena/pkg/repositories/match"
	"github.com/fadedpez/rpsarena/pkg/services/events"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Ledger is the subset of the ledger service sessions settle through
type Ledger interface {
	DebitIfSufficient(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, reason entities.LedgerReason, referenceID string) (int64, error)
	UpdateRecord(ctx context.Context, userID string, delta entities.RecordDelta) (*entities.Account, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// Modifiers applies active event modifiers to settlement values
type Modifiers interface {
	ApplyActive(target events.Target, value int64) int64
}

// Verdict tells the manager what to do with a session after settlement
type Verdict int

const (
	// VerdictSettled ends the session
	VerdictSettled Verdict = iota
	// VerdictReplay clears both moves and waits for new ones
	VerdictReplay
)

// Settler applies the consequences of a resolved round. It is called with the
// session locked, exactly once per resolution.
type Settler interface {
	Settle(ctx context.Context, res *Resolution) (Verdict, error)
}

// Resolution describes how a round ended and what settlement did
type Resolution struct {
	SessionID    string
	TournamentID string
	Round        int
	PlayerA      Player
	PlayerB      Player
	MoveA        entities.Move
	MoveB        entities.Move
	Outcome      entities.Outcome
	WinnerID     string
	LoserID      string
	Prize        int64
	Bonus        int64
	RatingChange int
	Replay       bool
	Failed       bool
	Note         string // extra line for the result notification
}

// MoveStatus is what happened to a submitted move
type MoveStatus int

const (
	MoveRecorded MoveStatus = iota
	MoveDuplicate
	MoveResolved
)

// MoveOutcome is returned to the submitting player
type MoveOutcome struct {
	Status     MoveStatus
	Move       entities.Move // recorded move, or the original one for a duplicate
	Resolution *Resolution   // set when Status is MoveResolved
}

// Config holds session timing
type Config struct {
	MoveTimeout    time.Duration // 1v1 sessions awaiting moves longer than this are voided
	TombstoneTTL   time.Duration // how long expired session IDs are remembered
	ArchiveTimeout time.Duration // deadline for writing one result to the archive
}

const defaultArchiveTimeout = 5 * time.Second

// Manager owns the live-session table. Lock order: session, then anything the
// settler takes, then the table lock. The table lock is never held while
// acquiring a session lock. Results are archived after the session lock is
// released.
type Manager struct {
	ledger    Ledger
	modifiers Modifiers
	results   matchRepo.Repository
	sender    notify.Sender
	clock     clockwork.Clock
	config    Config

	mu       sync.RWMutex
	sessions map[string]*Session
	expired  map[string]time.Time // session ID -> expiry time

	archiving sync.WaitGroup // background archive writes
}

// NewManager creates a session manager
func NewManager(ledger Ledger, modifiers Modifiers, results matchRepo.Repository, sender notify.Sender, clock clockwork.Clock, config Config) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.TombstoneTTL <= 0 {
		config.TombstoneTTL = 24 * time.Hour
	}
	if config.ArchiveTimeout <= 0 {
		config.ArchiveTimeout = defaultArchiveTimeout
	}
	return &Manager{
		ledger:    ledger,
		modifiers: modifiers,
		results:   results,
		sender:    sender,
		clock:     clock,
		config:    config,
		sessions:  make(map[string]*Session),
		expired:   make(map[string]time.Time),
	}
}

// StartDuel creates a 1v1 session and escrows both stakes. If either debit
// fails the session is voided, any taken stake is refunded and the returned
// error carries SESSION_VOIDED wrapping the cause.
func (m *Manager) StartDuel(ctx context.Context, playerA, playerB string, stake int64) (SessionView, error) {
	if playerA == playerB {
		return SessionView{}, types.NewGameError(types.ErrInvalidArgument, "a player cannot battle themselves")
	}
	if stake <= 0 {
		return SessionView{}, types.NewGameError(types.ErrInvalidArgument, "stake must be positive")
	}

	s := &Session{
		id:        uuid.New().String(),
		playerA:   Player{UserID: playerA, Stake: stake},
		playerB:   Player{UserID: playerB, Stake: stake},
		moves:     make(map[string]entities.Move, 2),
		state:     entities.SessionAwaitingEscrow,
		createdAt: m.clock.Now(),
	}
	s.settler = duelSettler{m: m}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := m.ledger.DebitIfSufficient(ctx, playerA, stake, entities.ReasonStakeEscrow, s.id); err != nil {
		return m.voidEscrowLocked(ctx, s, nil, err)
	}
	if _, err := m.ledger.DebitIfSufficient(ctx, playerB, stake, entities.ReasonStakeEscrow, s.id); err != nil {
		return m.voidEscrowLocked(ctx, s, []Player{s.playerA}, err)
	}

	s.state = entities.SessionAwaitingMoves
	m.register(s)

	log.Printf("[MATCH] Session %s started: %s vs %s for %d tokens each", s.id, playerA, playerB, stake)

	msg := battleStartMessage(s.viewLocked())
	m.sender.Send(playerA, msg)
	m.sender.Send(playerB, msg)

	return s.viewLocked(), nil
}

func (m *Manager) voidEscrowLocked(ctx context.Context, s *Session, refund []Player, cause error) (SessionView, error) {
	for _, p := range refund {
		if _, err := m.ledger.Credit(ctx, p.UserID, p.Stake, entities.ReasonStakeRefund, s.id); err != nil {
			log.Printf("[MATCH] ERROR: escrow refund of %d to %s for session %s failed: %v", p.Stake, p.UserID, s.id, err)
		}
	}
	s.state = entities.SessionVoided
	log.Printf("[MATCH] Session %s voided during escrow: %v", s.id, cause)

	// The caller may hold a queue lock, so the archive write must not block it
	m.archiveAsync(s.resultLocked(nil, m.clock.Now()))
	return s.viewLocked(), types.WrapError(types.ErrSessionVoided, "battle cancelled: a stake could not be escrowed", cause)
}

// StartBracketMatch registers a session that skips escrow and goes straight
// to awaiting moves. The settler decides what a result means.
func (m *Manager) StartBracketMatch(tournamentID string, round int, playerA, playerB string, settler Settler) SessionView {
	s := &Session{
		id:           uuid.New().String(),
		playerA:      Player{UserID: playerA},
		playerB:      Player{UserID: playerB},
		moves:        make(map[string]entities.Move, 2),
		state:        entities.SessionAwaitingMoves,
		createdAt:    m.clock.Now(),
		tournamentID: tournamentID,
		round:        round,
		settler:      settler,
	}
	m.register(s)

	log.Printf("[MATCH] Bracket session %s started: %s vs %s (tournament %s, round %d)", s.id, playerA, playerB, tournamentID, round)
	return s.View()
}

// Abandon voids a bracket session that is still waiting for moves. It must
// not be called with that session's lock held.
func (m *Manager) Abandon(ctx context.Context, sessionID string) bool {
	s, ok := m.lookup(sessionID)
	if !ok {
		return false
	}

	var result *entities.MatchResult
	defer func() { m.archive(ctx, result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != entities.SessionAwaitingMoves {
		return false
	}
	s.state = entities.SessionVoided
	m.unregister(s.id)
	result = s.resultLocked(nil, m.clock.Now())

	log.Printf("[MATCH] Session %s abandoned", s.id)
	return true
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.id] = s
}

func (m *Manager) unregister(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) lookup(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *Manager) isExpired(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.expired[sessionID]
	return ok
}

// Get returns a snapshot of a live session
func (m *Manager) Get(sessionID string) (SessionView, error) {
	s, ok := m.lookup(sessionID)
	if !ok {
		return SessionView{}, types.NewGameError(types.ErrSessionNotFound, "battle not found")
	}
	return s.View(), nil
}

// LiveCount returns the number of sessions in the table
func (m *Manager) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SubmitMove records a player's move. The submission that completes the pair
// resolves and settles the session before returning.
func (m *Manager) SubmitMove(ctx context.Context, sessionID, playerID string, move entities.Move) (*MoveOutcome, error) {
	if !move.Valid() {
		return nil, types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("invalid move %q", move))
	}

	s, ok := m.lookup(sessionID)
	if !ok {
		return m.submitToFinished(ctx, sessionID, playerID)
	}

	var result *entities.MatchResult
	defer func() { m.archive(ctx, result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.participant(playerID) {
		return nil, types.NewGameError(types.ErrNotAParticipant, "you are not a participant in this battle")
	}

	if existing, ok := s.moves[playerID]; ok {
		return &MoveOutcome{Status: MoveDuplicate, Move: existing}, nil
	}

	switch s.state {
	case entities.SessionAwaitingMoves:
	case entities.SessionVoided:
		if m.isExpired(s.id) {
			return nil, types.NewGameError(types.ErrSessionExpired, "this battle expired")
		}
		return nil, types.NewGameError(types.ErrSessionVoided, "this battle was cancelled")
	default:
		return nil, types.NewGameError(types.ErrInvalidState, fmt.Sprintf("battle is %s", s.state))
	}

	s.moves[playerID] = move
	if len(s.moves) < 2 {
		log.Printf("[MATCH] Session %s: %s submitted a move", s.id, playerID)
		return &MoveOutcome{Status: MoveRecorded, Move: move}, nil
	}

	s.state = entities.SessionResolved
	res := s.resolutionLocked()
	log.Printf("[MATCH] Session %s resolved: %s %s vs %s %s -> %s",
		s.id, s.playerA.UserID, res.MoveA, s.playerB.UserID, res.MoveB, res.Outcome)

	verdict, err := s.settler.Settle(ctx, res)
	if err != nil {
		res.Failed = true
		log.Printf("[MATCH] ERROR: settlement of session %s failed, forcing settled: %v", s.id, err)
	}

	if verdict == VerdictReplay && err == nil {
		res.Replay = true
		s.moves = make(map[string]entities.Move, 2)
		s.state = entities.SessionAwaitingMoves
	} else {
		s.state = entities.SessionSettled
		m.unregister(s.id)
		result = s.resultLocked(res, m.clock.Now())
	}

	m.notifyResolution(ctx, res)
	return &MoveOutcome{Status: MoveResolved, Move: move, Resolution: res}, nil
}

// submitToFinished answers submissions for sessions no longer in the table
func (m *Manager) submitToFinished(ctx context.Context, sessionID, playerID string) (*MoveOutcome, error) {
	if m.isExpired(sessionID) {
		return nil, types.NewGameError(types.ErrSessionExpired, "this battle expired")
	}

	result, err := m.results.GetResult(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, matchRepo.ErrResultNotFound) {
			log.Printf("[MATCH] Error reading archived session %s: %v", sessionID, err)
		}
		return nil, types.NewGameError(types.ErrSessionNotFound, "this battle has already ended or does not exist")
	}

	if !result.Involves(playerID) {
		return nil, types.NewGameError(types.ErrNotAParticipant, "you are not a participant in this battle")
	}
	if result.State == entities.SessionVoided {
		return nil, types.NewGameError(types.ErrSessionVoided, "this battle was cancelled")
	}

	move := result.MoveA
	if result.PlayerB == playerID {
		move = result.MoveB
	}
	return &MoveOutcome{Status: MoveDuplicate, Move: move}, nil
}

// SweepExpired voids 1v1 sessions that have waited for moves longer than the
// move timeout and refunds both stakes. Returns the number voided.
func (m *Manager) SweepExpired(ctx context.Context) int {
	if m.config.MoveTimeout <= 0 {
		return 0
	}

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.tournamentID == "" {
			candidates = append(candidates, s)
		}
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	voided := 0
	for _, s := range candidates {
		if m.expireIfStale(ctx, s, now) {
			voided++
		}
	}

	m.pruneTombstones(now)
	if voided > 0 {
		log.Printf("[MATCH] Sweep voided %d expired sessions", voided)
	}
	return voided
}

func (m *Manager) expireIfStale(ctx context.Context, s *Session, now time.Time) bool {
	var result *entities.MatchResult
	defer func() { m.archive(ctx, result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != entities.SessionAwaitingMoves || now.Sub(s.createdAt) < m.config.MoveTimeout {
		return false
	}

	m.refundStakesLocked(ctx, s)
	s.state = entities.SessionVoided

	m.mu.Lock()
	delete(m.sessions, s.id)
	m.expired[s.id] = now
	m.mu.Unlock()

	result = s.resultLocked(nil, now)

	log.Printf("[MATCH] Session %s expired after %s, stakes refunded", s.id, m.config.MoveTimeout)
	msg := expiredMessage(s.viewLocked())
	m.sender.Send(s.playerA.UserID, msg)
	m.sender.Send(s.playerB.UserID, msg)
	return true
}

func (m *Manager) pruneTombstones(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, at := range m.expired {
		if now.Sub(at) > m.config.TombstoneTTL {
			delete(m.expired, id)
		}
	}
}

// refundStakesLocked returns both escrowed stakes, best effort
func (m *Manager) refundStakesLocked(ctx context.Context, s *Session) error {
	var errs []error
	for _, p := range []Player{s.playerA, s.playerB} {
		if p.Stake <= 0 {
			continue
		}
		if _, err := m.ledger.Credit(ctx, p.UserID, p.Stake, entities.ReasonStakeRefund, s.id); err != nil {
			log.Printf("[MATCH] ERROR: refund of %d to %s for session %s failed: %v", p.Stake, p.UserID, s.id, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// archive writes a finished session's result within the archive timeout.
// Callers must not hold the session lock.
func (m *Manager) archive(ctx context.Context, result *entities.MatchResult) {
	if result == nil || m.results == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.ArchiveTimeout)
	defer cancel()

	if err := m.results.SaveResult(ctx, result); err != nil {
		log.Printf("[MATCH] Error archiving session %s: %v", result.SessionID, err)
	}
}

// archiveAsync archives in the background; Wait blocks until it is done
func (m *Manager) archiveAsync(result *entities.MatchResult) {
	m.archiving.Add(1)
	go func() {
		defer m.archiving.Done()
		m.archive(context.Background(), result)
	}()
}

// Wait blocks until every background archive write has finished
func (m *Manager) Wait() {
	m.archiving.Wait()
}

func (m *Manager) notifyResolution(ctx context.Context, res *Resolution) {
	for _, p := range []Player{res.PlayerA, res.PlayerB} {
		balance := int64(-1)
		if res.TournamentID == "" {
			if b, err := m.ledger.Balance(ctx, p.UserID); err == nil {
				balance = b
			}
		}
		m.sender.Send(p.UserID, resultMessage(res, p.UserID, balance))
	}
}
