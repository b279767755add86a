package match

import (
	"context"
	"errors"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

var ErrResultNotFound = errors.New("match result not found")

// Repository archives finished sessions
type Repository interface {
	// SaveResult stores a settled or voided session. Saving the same session twice overwrites.
	SaveResult(ctx context.Context, result *entities.MatchResult) error

	// GetResult retrieves one archived session by ID
	GetResult(ctx context.Context, sessionID string) (*entities.MatchResult, error)

	// GetPlayerResults retrieves a player's most recent results, newest first
	GetPlayerResults(ctx context.Context, playerID string, limit int) ([]*entities.MatchResult, error)

	// GetTournamentResults retrieves every bracket match of a tournament in round order
	GetTournamentResults(ctx context.Context, tournamentID string) ([]*entities.MatchResult, error)

	// Close closes any resources used by the repository
	Close() error
}
