package match

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fadedpez/rpsarena/pkg/db/migrations"
	"github.com/fadedpez/rpsarena/pkg/entities"
	_ "github.com/mattn/go-sqlite3"
)

const resultColumns = `session_id, tournament_id, round, player_a, player_b, move_a, move_b,
	stake, winner_id, prize, state, created_at, completed_at`

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database and applies migrations
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.NewMigrator(db).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error applying migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// SaveResult stores a settled or voided session
func (r *SQLiteRepository) SaveResult(ctx context.Context, result *entities.MatchResult) error {
	query := `INSERT OR REPLACE INTO match_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		result.SessionID,
		nullable(result.TournamentID),
		result.Round,
		result.PlayerA,
		result.PlayerB,
		nullable(string(result.MoveA)),
		nullable(string(result.MoveB)),
		result.Stake,
		nullable(result.WinnerID),
		result.Prize,
		string(result.State),
		result.CreatedAt,
		result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving match result: %w", err)
	}
	return nil
}

// GetResult retrieves one archived session by ID
func (r *SQLiteRepository) GetResult(ctx context.Context, sessionID string) (*entities.MatchResult, error) {
	results, err := r.query(ctx, `SELECT `+resultColumns+` FROM match_results WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrResultNotFound
	}
	return results[0], nil
}

// GetPlayerResults retrieves a player's most recent results, newest first
func (r *SQLiteRepository) GetPlayerResults(ctx context.Context, playerID string, limit int) ([]*entities.MatchResult, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + resultColumns + ` FROM match_results
		WHERE player_a = ? OR player_b = ?
		ORDER BY completed_at DESC, rowid DESC
		LIMIT ?`
	return r.query(ctx, query, playerID, playerID, limit)
}

// GetTournamentResults retrieves every bracket match of a tournament in round order
func (r *SQLiteRepository) GetTournamentResults(ctx context.Context, tournamentID string) ([]*entities.MatchResult, error) {
	query := `SELECT ` + resultColumns + ` FROM match_results
		WHERE tournament_id = ?
		ORDER BY round ASC, rowid ASC`
	return r.query(ctx, query, tournamentID)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*entities.MatchResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying match results: %w", err)
	}
	defer rows.Close()

	results := make([]*entities.MatchResult, 0)
	for rows.Next() {
		var (
			result       entities.MatchResult
			tournamentID sql.NullString
			moveA, moveB sql.NullString
			winnerID     sql.NullString
			state        string
		)
		if err := rows.Scan(
			&result.SessionID,
			&tournamentID,
			&result.Round,
			&result.PlayerA,
			&result.PlayerB,
			&moveA,
			&moveB,
			&result.Stake,
			&winnerID,
			&result.Prize,
			&state,
			&result.CreatedAt,
			&result.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning match result row: %w", err)
		}

		result.TournamentID = tournamentID.String
		result.MoveA = entities.Move(moveA.String)
		result.MoveB = entities.Move(moveB.String)
		result.WinnerID = winnerID.String
		result.State = entities.SessionState(state)
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match result rows: %w", err)
	}
	return results, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

