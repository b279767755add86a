package match

import (
	"sync"
	"time"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

// Player is one side of a session
type Player struct {
	UserID string
	Stake  int64 // escrowed stake; informational for bracket matches
}

// Session is one round between two players. All mutation happens with mu held.
type Session struct {
	mu sync.Mutex

	id           string
	playerA      Player
	playerB      Player
	moves        map[string]entities.Move
	state        entities.SessionState
	createdAt    time.Time
	tournamentID string
	round        int
	settler      Settler
}

// SessionView is a read-only snapshot of a session
type SessionView struct {
	ID           string
	PlayerA      Player
	PlayerB      Player
	State        entities.SessionState
	Moves        map[string]entities.Move
	CreatedAt    time.Time
	TournamentID string
	Round        int
}

// Pot returns the total escrowed stake
func (v SessionView) Pot() int64 {
	return v.PlayerA.Stake + v.PlayerB.Stake
}

// Opponent returns the other player's ID
func (v SessionView) Opponent(playerID string) string {
	if v.PlayerA.UserID == playerID {
		return v.PlayerB.UserID
	}
	return v.PlayerA.UserID
}

// ID returns the session's immutable ID
func (s *Session) ID() string {
	return s.id
}

// View returns a snapshot of the session
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() SessionView {
	moves := make(map[string]entities.Move, len(s.moves))
	for playerID, move := range s.moves {
		moves[playerID] = move
	}
	return SessionView{
		ID:           s.id,
		PlayerA:      s.playerA,
		PlayerB:      s.playerB,
		State:        s.state,
		Moves:        moves,
		CreatedAt:    s.createdAt,
		TournamentID: s.tournamentID,
		Round:        s.round,
	}
}

func (s *Session) participant(playerID string) bool {
	return s.playerA.UserID == playerID || s.playerB.UserID == playerID
}

// resolutionLocked builds the resolution once both moves are present
func (s *Session) resolutionLocked() *Resolution {
	res := &Resolution{
		SessionID:    s.id,
		TournamentID: s.tournamentID,
		Round:        s.round,
		PlayerA:      s.playerA,
		PlayerB:      s.playerB,
		MoveA:        s.moves[s.playerA.UserID],
		MoveB:        s.moves[s.playerB.UserID],
	}
	res.Outcome = Resolve(res.MoveA, res.MoveB)

	switch res.Outcome {
	case entities.OutcomeAWins:
		res.WinnerID, res.LoserID = s.playerA.UserID, s.playerB.UserID
	case entities.OutcomeBWins:
		res.WinnerID, res.LoserID = s.playerB.UserID, s.playerA.UserID
	}
	return res
}

// result converts the session into its archive record
func (s *Session) resultLocked(res *Resolution, completedAt time.Time) *entities.MatchResult {
	result := &entities.MatchResult{
		SessionID:    s.id,
		TournamentID: s.tournamentID,
		Round:        s.round,
		PlayerA:      s.playerA.UserID,
		PlayerB:      s.playerB.UserID,
		MoveA:        s.moves[s.playerA.UserID],
		MoveB:        s.moves[s.playerB.UserID],
		Stake:        s.playerA.Stake,
		State:        s.state,
		CreatedAt:    s.createdAt,
		CompletedAt:  completedAt,
	}
	if res != nil && !res.Failed {
		result.WinnerID = res.WinnerID
		result.Prize = res.Prize
	}
	return result
}
