package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Task represents a scheduled task
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(context.Context) error
}

// Scheduler runs tasks at fixed intervals on a gocron scheduler
type Scheduler struct {
	clock clockwork.Clock
	tasks []*Task

	mutex   sync.Mutex
	sched   gocron.Scheduler
	running bool
	cancel  context.CancelFunc
}

// NewScheduler creates a new scheduler. A nil clock uses the real clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		tasks: make([]*Task, 0),
	}
}

// AddTask adds a task to the scheduler. Tasks added after Start run from the
// next Start.
func (s *Scheduler) AddTask(name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive, got %s", name, interval)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	return nil
}

// Start registers every task with gocron and starts running them. Each task
// runs once immediately and then on its interval; a run still in progress
// when the next one is due is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("error creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	for _, task := range s.tasks {
		_, err := sched.NewJob(
			gocron.DurationJob(task.Interval),
			gocron.NewTask(func() { s.run(ctx, task) }),
			gocron.WithName(task.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return fmt.Errorf("error scheduling task %s: %w", task.Name, err)
		}
	}

	sched.Start()
	s.sched = sched
	s.cancel = cancel
	s.running = true

	log.Printf("[SCHEDULER] Started with %d tasks", len(s.tasks))
	return nil
}

// Stop stops the scheduler and waits for running tasks to return
func (s *Scheduler) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	s.running = false
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("error stopping scheduler: %w", err)
	}
	log.Println("[SCHEDULER] Stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context, task *Task) {
	if ctx.Err() != nil {
		return
	}
	if err := task.Fn(ctx); err != nil {
		log.Printf("[SCHEDULER] Error running task %s: %v", task.Name, err)
	}
}
