package match

import (
	"context"
	"sort"
	"sync"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	mu      sync.RWMutex
	results map[string]*entities.MatchResult
	order   []string // session IDs in save order
}

// NewMemoryRepository creates a new in-memory match repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		results: make(map[string]*entities.MatchResult),
		order:   make([]string, 0),
	}
}

// SaveResult stores a copy of the result
func (r *MemoryRepository) SaveResult(ctx context.Context, result *entities.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[result.SessionID]; !exists {
		r.order = append(r.order, result.SessionID)
	}
	resultCopy := *result
	r.results[result.SessionID] = &resultCopy
	return nil
}

// GetResult retrieves one archived session by ID
func (r *MemoryRepository) GetResult(ctx context.Context, sessionID string) (*entities.MatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, exists := r.results[sessionID]
	if !exists {
		return nil, ErrResultNotFound
	}
	resultCopy := *result
	return &resultCopy, nil
}

// GetPlayerResults retrieves a player's most recent results, newest first
func (r *MemoryRepository) GetPlayerResults(ctx context.Context, playerID string, limit int) ([]*entities.MatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*entities.MatchResult, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		result := r.results[r.order[i]]
		if !result.Involves(playerID) {
			continue
		}
		resultCopy := *result
		results = append(results, &resultCopy)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// GetTournamentResults retrieves every bracket match of a tournament in round order
func (r *MemoryRepository) GetTournamentResults(ctx context.Context, tournamentID string) ([]*entities.MatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*entities.MatchResult, 0)
	for _, sessionID := range r.order {
		result := r.results[sessionID]
		if result.TournamentID != tournamentID {
			continue
		}
		resultCopy := *result
		results = append(results, &resultCopy)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Round < results[j].Round
	})
	return results, nil
}

// Close is a no-op for the memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
