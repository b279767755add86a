package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
)

// SessionSweeper voids sessions that waited too long for moves
type SessionSweeper interface {
	SweepExpired(ctx context.Context) int
}

// ModifierPruner drops expired event modifiers
type ModifierPruner interface {
	Prune() int
}

// IndexPruner deletes match indices past their retention
type IndexPruner interface {
	PruneIndices(ctx context.Context, keepMonths int) (int, error)
}

// MaintenanceConfig holds maintenance intervals
type MaintenanceConfig struct {
	SweepInterval   time.Duration // session sweep and modifier prune
	IndexRetention  int           // months of match indices to keep; 0 keeps everything
	IndexPruneEvery time.Duration
}

// MaintenanceScheduler runs the arena's periodic housekeeping
type MaintenanceScheduler struct {
	scheduler *Scheduler
	sessions  SessionSweeper
	modifiers ModifierPruner
	indices   IndexPruner
	config    MaintenanceConfig
}

// NewMaintenanceScheduler creates the housekeeping scheduler. indices may be nil
// when Elasticsearch is not configured.
func NewMaintenanceScheduler(clock clockwork.Clock, sessions SessionSweeper, modifiers ModifierPruner, indices IndexPruner, config MaintenanceConfig) *MaintenanceScheduler {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.IndexPruneEvery <= 0 {
		config.IndexPruneEvery = 24 * time.Hour
	}
	return &MaintenanceScheduler{
		scheduler: NewScheduler(clock),
		sessions:  sessions,
		modifiers: modifiers,
		indices:   indices,
		config:    config,
	}
}

// Start registers the maintenance tasks and starts the scheduler
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	if err := s.scheduler.AddTask("session_sweep", s.config.SweepInterval, s.sweepSessions); err != nil {
		return err
	}
	if err := s.scheduler.AddTask("modifier_prune", s.config.SweepInterval, s.pruneModifiers); err != nil {
		return err
	}
	if s.indices != nil && s.config.IndexRetention > 0 {
		if err := s.scheduler.AddTask("index_pruning", s.config.IndexPruneEvery, s.pruneIndices); err != nil {
			return err
		}
	}

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	log.Println("[SCHEDULER] Maintenance scheduler started")
	return nil
}

// Stop stops the maintenance scheduler
func (s *MaintenanceScheduler) Stop() error {
	return s.scheduler.Stop()
}

func (s *MaintenanceScheduler) sweepSessions(ctx context.Context) error {
	if voided := s.sessions.SweepExpired(ctx); voided > 0 {
		log.Printf("[SCHEDULER] Voided %d expired sessions", voided)
	}
	return nil
}

func (s *MaintenanceScheduler) pruneModifiers(ctx context.Context) error {
	s.modifiers.Prune()
	return nil
}

func (s *MaintenanceScheduler) pruneIndices(ctx context.Context) error {
	_, err := s.indices.PruneIndices(ctx, s.config.IndexRetention)
	return err
}
