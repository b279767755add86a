package entities

import "time"

// SessionState is the lifecycle state of a match session
type SessionState string

const (
	SessionAwaitingEscrow SessionState = "AWAITING_ESCROW"
	SessionAwaitingMoves  SessionState = "AWAITING_MOVES"
	SessionResolved       SessionState = "RESOLVED"
	SessionSettled        SessionState = "SETTLED"
	SessionVoided         SessionState = "VOIDED"
)

// Terminal reports whether no transition can leave the state
func (s SessionState) Terminal() bool {
	return s == SessionSettled || s == SessionVoided
}

// Outcome is the result of comparing two moves from player A's side
type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomeAWins
	OutcomeBWins
)

// String returns a readable outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeAWins:
		return "A_WINS"
	case OutcomeBWins:
		return "B_WINS"
	}
	return "DRAW"
}

// MatchResult is the archived record of a finished session
type MatchResult struct {
	SessionID    string       `json:"session_id"`
	TournamentID string       `json:"tournament_id,omitempty"`
	Round        int          `json:"round,omitempty"`
	PlayerA      string       `json:"player_a"`
	PlayerB      string       `json:"player_b"`
	MoveA        Move         `json:"move_a,omitempty"`
	MoveB        Move         `json:"move_b,omitempty"`
	Stake        int64        `json:"stake"`
	WinnerID     string       `json:"winner_id,omitempty"`
	Prize        int64        `json:"prize"`
	State        SessionState `json:"state"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// Involves reports whether the player took part in the match
func (r *MatchResult) Involves(playerID string) bool {
	return r.PlayerA == playerID || r.PlayerB == playerID
}
