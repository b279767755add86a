package events

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/jonboulle/clockwork"
)

// Kind identifies a modifier in the modifier table
type Kind string

const (
	DoubleRewards Kind = "double-rewards"
	RewardBoost   Kind = "reward-boost"
	DoubleRating  Kind = "double-rating"
	HalfEntryFee  Kind = "half-entry-fee"
)

// Target is the value class a modifier applies to
type Target string

const (
	TargetReward   Target = "reward"
	TargetRating   Target = "rating"
	TargetEntryFee Target = "entry-fee"
)

type definition struct {
	target Target
	apply  func(int64) int64
}

// modifierTable maps each kind to its target and pure multiplier function
var modifierTable = map[Kind]definition{
	DoubleRewards: {target: TargetReward, apply: func(v int64) int64 { return v * 2 }},
	RewardBoost:   {target: TargetReward, apply: func(v int64) int64 { return v * 3 / 2 }},
	DoubleRating:  {target: TargetRating, apply: func(v int64) int64 { return v * 2 }},
	HalfEntryFee:  {target: TargetEntryFee, apply: func(v int64) int64 { return v / 2 }},
}

// Kinds returns every known modifier kind
func Kinds() []Kind {
	return []Kind{DoubleRewards, RewardBoost, DoubleRating, HalfEntryFee}
}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	kind := Kind(s)
	if _, ok := modifierTable[kind]; !ok {
		return "", types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("unknown event modifier %q", s))
	}
	return kind, nil
}

// Target returns the value class the kind modifies
func (k Kind) Target() Target {
	return modifierTable[k].target
}

// Apply runs the kind's multiplier over value
func (k Kind) Apply(value int64) int64 {
	def, ok := modifierTable[k]
	if !ok {
		return value
	}
	return def.apply(value)
}

// Modifier is one active, time-bounded event
type Modifier struct {
	Kind        Kind
	ActivatedAt time.Time
	ExpiresAt   time.Time
}

func (m Modifier) expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Registry holds the active modifiers. Expired entries are pruned on every read.
type Registry struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	active []Modifier // activation order
}

// NewRegistry creates an empty registry reading time from clock
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:  clock,
		active: make([]Modifier, 0),
	}
}

// Activate starts a modifier for duration. Activating a kind that is already
// active replaces it; the new activation moves to the end of the fold order.
func (r *Registry) Activate(kind Kind, duration time.Duration) (Modifier, error) {
	if _, ok := modifierTable[kind]; !ok {
		return Modifier{}, types.NewGameError(types.ErrInvalidArgument, fmt.Sprintf("unknown event modifier %q", kind))
	}
	if duration <= 0 {
		return Modifier{}, types.NewGameError(types.ErrInvalidArgument, "event duration must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.pruneLocked(now)
	r.removeLocked(kind)

	modifier := Modifier{
		Kind:        kind,
		ActivatedAt: now,
		ExpiresAt:   now.Add(duration),
	}
	r.active = append(r.active, modifier)

	log.Printf("[EVENTS] Activated %s until %s", kind, modifier.ExpiresAt.Format(time.RFC3339))
	return modifier, nil
}

// Deactivate ends a modifier early. Returns false if it was not active.
func (r *Registry) Deactivate(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.clock.Now())
	return r.removeLocked(kind)
}

// ApplyActive folds every live modifier for target over value in activation order
func (r *Registry) ApplyActive(target Target, value int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.clock.Now())
	for _, modifier := range r.active {
		if modifier.Kind.Target() == target {
			value = modifier.Kind.Apply(value)
		}
	}
	return value
}

// Active returns a snapshot of the live modifiers
func (r *Registry) Active() []Modifier {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.clock.Now())
	snapshot := make([]Modifier, len(r.active))
	copy(snapshot, r.active)
	return snapshot
}

// Prune drops expired modifiers and returns how many were removed
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pruneLocked(r.clock.Now())
}

func (r *Registry) pruneLocked(now time.Time) int {
	kept := r.active[:0]
	removed := 0
	for _, modifier := range r.active {
		if modifier.expired(now) {
			log.Printf("[EVENTS] %s expired", modifier.Kind)
			removed++
			continue
		}
		kept = append(kept, modifier)
	}
	r.active = kept
	return removed
}

func (r *Registry) removeLocked(kind Kind) bool {
	for i, modifier := range r.active {
		if modifier.Kind == kind {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return true
		}
	}
	return false
}
