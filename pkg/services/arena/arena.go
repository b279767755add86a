// Package arena is the entry point transports call into. Each method maps one
// player action onto the queue, session, tournament or ledger services.
package arena

import (
	"context"
	"time"

	"github.com/fadedpez/rpsarena/internal/logging"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
	accountRepo "github.com/fadedpez/rpsarena/pkg/repositories/account"
	matchRepo "github.com/fadedpez/rpsarena/pkg/repositories/match"
	"github.com/fadedpez/rpsarena/pkg/services/events"
	"github.com/fadedpez/rpsarena/pkg/services/ledger"
	"github.com/fadedpez/rpsarena/pkg/services/match"
	"github.com/fadedpez/rpsarena/pkg/services/matchmaking"
	"github.com/fadedpez/rpsarena/pkg/services/tournament"
	"github.com/jonboulle/clockwork"
)

// Config holds the arena's tunables
type Config struct {
	StartingTokens     int64
	StakeTiers         []int64
	TournamentEntryFee int64
	MoveTimeout        time.Duration
}

// DefaultStakeTiers are the stakes offered when none are configured
var DefaultStakeTiers = []int64{50, 100, 200, 500}

// Arena wires the services together and owns their lifecycles
type Arena struct {
	ledger      *ledger.Service
	events      *events.Registry
	matches     *match.Manager
	queue       *matchmaking.Queue
	tournaments *tournament.Service
	results     matchRepo.Repository
	logger      *logging.Logger
}

// New creates an arena over the given stores. Notifications go to sender.
func New(accounts accountRepo.Repository, results matchRepo.Repository, sender notify.Sender, clock clockwork.Clock, cfg Config, logger *logging.Logger) *Arena {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	if cfg.StartingTokens <= 0 {
		cfg.StartingTokens = ledger.DefaultStartingTokens
	}
	if len(cfg.StakeTiers) == 0 {
		cfg.StakeTiers = DefaultStakeTiers
	}

	ledgerSvc := ledger.NewService(accounts, cfg.StartingTokens)
	registry := events.NewRegistry(clock)
	manager := match.NewManager(ledgerSvc, registry, results, sender, clock, match.Config{MoveTimeout: cfg.MoveTimeout})

	return &Arena{
		ledger:      ledgerSvc,
		events:      registry,
		matches:     manager,
		queue:       matchmaking.NewQueue(ledgerSvc, manager, sender, clock, cfg.StakeTiers),
		tournaments: tournament.NewService(ledgerSvc, registry, manager, sender, clock, cfg.TournamentEntryFee),
		results:     results,
		logger:      logger,
	}
}

// Matches returns the live-session manager
func (a *Arena) Matches() *match.Manager {
	return a.matches
}

// Events returns the modifier registry
func (a *Arena) Events() *events.Registry {
	return a.events
}

// StakeTiers returns the accepted stakes
func (a *Arena) StakeTiers() []int64 {
	return a.queue.Tiers()
}

func (a *Arena) ensureAccount(ctx context.Context, playerID string) error {
	account, created, err := a.ledger.GetOrCreateAccount(ctx, playerID)
	if err != nil {
		return err
	}
	if created {
		a.logger.Info("New player %s starts with %d tokens", playerID, account.Tokens)
	}
	return nil
}

// fail logs err and hands it back
func (a *Arena) fail(err error) error {
	a.logger.LogError(err)
	return err
}

// OnStakeSelect queues the player at a stake or pairs them with a waiting
// opponent
func (a *Arena) OnStakeSelect(ctx context.Context, playerID string, stake int64) (*matchmaking.Outcome, error) {
	if err := a.ensureAccount(ctx, playerID); err != nil {
		return nil, a.fail(err)
	}
	outcome, err := a.queue.EnqueueOrMatch(ctx, playerID, stake)
	if err != nil {
		return nil, a.fail(err)
	}
	return outcome, nil
}

// OnStakeCancel takes the player out of the queue at a stake
func (a *Arena) OnStakeCancel(ctx context.Context, playerID string, stake int64) (bool, error) {
	removed, err := a.queue.Cancel(playerID, stake)
	if err != nil {
		return false, a.fail(err)
	}
	return removed, nil
}

// OnMoveSubmit records a move for a live session
func (a *Arena) OnMoveSubmit(ctx context.Context, sessionID, playerID string, move entities.Move) (*match.MoveOutcome, error) {
	outcome, err := a.matches.SubmitMove(ctx, sessionID, playerID, move)
	if err != nil {
		return nil, a.fail(err)
	}
	return outcome, nil
}

// OnTournamentCreate opens a tournament with the creator as first entrant
func (a *Arena) OnTournamentCreate(ctx context.Context, creatorID string) (tournament.View, error) {
	if err := a.ensureAccount(ctx, creatorID); err != nil {
		return tournament.View{}, a.fail(err)
	}
	view, err := a.tournaments.Create(ctx, creatorID)
	if err != nil {
		return tournament.View{}, a.fail(err)
	}
	return view, nil
}

// OnTournamentJoin registers the player in a tournament
func (a *Arena) OnTournamentJoin(ctx context.Context, tournamentID, playerID string) (*tournament.JoinOutcome, error) {
	if err := a.ensureAccount(ctx, playerID); err != nil {
		return nil, a.fail(err)
	}
	outcome, err := a.tournaments.Join(ctx, tournamentID, playerID)
	if err != nil {
		return nil, a.fail(err)
	}
	return outcome, nil
}

// OnTournamentCancel cancels a registering tournament on behalf of its creator
func (a *Arena) OnTournamentCancel(ctx context.Context, tournamentID, playerID string) (tournament.View, error) {
	view, err := a.tournaments.Cancel(ctx, tournamentID, playerID)
	if err != nil {
		return tournament.View{}, a.fail(err)
	}
	return view, nil
}

// OpenTournaments lists tournaments taking registrations
func (a *Arena) OpenTournaments() []tournament.View {
	return a.tournaments.Open()
}

// OnBalance returns the player's account, creating it on first contact
func (a *Arena) OnBalance(ctx context.Context, playerID string) (*entities.Account, error) {
	account, _, err := a.ledger.GetOrCreateAccount(ctx, playerID)
	if err != nil {
		return nil, a.fail(err)
	}
	return account, nil
}

// OnHistory returns the player's most recent results, newest first
func (a *Arena) OnHistory(ctx context.Context, playerID string, limit int) ([]*entities.MatchResult, error) {
	results, err := a.results.GetPlayerResults(ctx, playerID, limit)
	if err != nil {
		a.logger.Error("Reading history for %s: %v", playerID, err)
		return nil, err
	}
	return results, nil
}

// OnEventActivate starts a modifier for the given duration
func (a *Arena) OnEventActivate(kind string, duration time.Duration) (events.Modifier, error) {
	k, err := events.ParseKind(kind)
	if err != nil {
		return events.Modifier{}, a.fail(err)
	}
	modifier, err := a.events.Activate(k, duration)
	if err != nil {
		return events.Modifier{}, a.fail(err)
	}
	a.logger.Info("Event %s active until %s", k, modifier.ExpiresAt.Format(time.RFC3339))
	return modifier, nil
}

// Close waits for background archive writes to finish. Call it before
// closing the repositories.
func (a *Arena) Close() {
	a.matches.Wait()
}

// Maintain voids expired sessions and drops expired modifiers. Returns how
// many of each were removed.
func (a *Arena) Maintain(ctx context.Context) (sessions, modifiers int) {
	return a.matches.SweepExpired(ctx), a.events.Prune()
}
