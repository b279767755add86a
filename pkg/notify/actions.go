package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fadedpez/rpsarena/pkg/entities"
)

// ActionKind identifies what a pressed affordance asks the arena to do
type ActionKind string

const (
	ActionStake       ActionKind = "stake"
	ActionMove        ActionKind = "move"
	ActionJoin        ActionKind = "tjoin"
	ActionCancelStake ActionKind = "unstake"
)

// Action is a parsed affordance ID
type Action struct {
	Kind         ActionKind
	Stake        int64
	SessionID    string
	Move         entities.Move
	TournamentID string
}

// StakeAction builds the ID of a stake selection button
func StakeAction(stake int64) string {
	return fmt.Sprintf("%s_%d", ActionStake, stake)
}

// CancelStakeAction builds the ID of a leave-queue button
func CancelStakeAction(stake int64) string {
	return fmt.Sprintf("%s_%d", ActionCancelStake, stake)
}

// MoveAction builds the ID of a move button for a session
func MoveAction(sessionID string, move entities.Move) string {
	return fmt.Sprintf("%s_%s_%s", ActionMove, sessionID, move)
}

// JoinAction builds the ID of a tournament join button
func JoinAction(tournamentID string) string {
	return fmt.Sprintf("%s_%s", ActionJoin, tournamentID)
}

// MoveAffordances returns the three move buttons for a session
func MoveAffordances(sessionID string) []Affordance {
	affordances := make([]Affordance, 0, len(entities.Moves))
	for _, move := range entities.Moves {
		affordances = append(affordances, Affordance{
			Label:  strings.ToUpper(string(move[:1])) + string(move[1:]),
			Emoji:  move.Emoji(),
			Action: MoveAction(sessionID, move),
		})
	}
	return affordances
}

// StakeAffordances returns one button per stake tier
func StakeAffordances(tiers []int64) []Affordance {
	affordances := make([]Affordance, 0, len(tiers))
	for _, tier := range tiers {
		affordances = append(affordances, Affordance{
			Label:  fmt.Sprintf("%d tokens", tier),
			Emoji:  "💰",
			Action: StakeAction(tier),
		})
	}
	return affordances
}

// ParseAction decodes an affordance ID
func ParseAction(id string) (Action, error) {
	kind, rest, found := strings.Cut(id, "_")
	if !found || rest == "" {
		return Action{}, fmt.Errorf("invalid action %q", id)
	}

	switch ActionKind(kind) {
	case ActionStake, ActionCancelStake:
		stake, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || stake <= 0 {
			return Action{}, fmt.Errorf("invalid stake in action %q", id)
		}
		return Action{Kind: ActionKind(kind), Stake: stake}, nil

	case ActionMove:
		idx := strings.LastIndex(rest, "_")
		if idx <= 0 {
			return Action{}, fmt.Errorf("invalid move action %q", id)
		}
		move, err := entities.ParseMove(rest[idx+1:])
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: ActionMove, SessionID: rest[:idx], Move: move}, nil

	case ActionJoin:
		return Action{Kind: ActionJoin, TournamentID: rest}, nil
	}

	return Action{}, fmt.Errorf("unknown action %q", id)
}
