package entities

import (
	"fmt"
	"strings"
)

// Move is a rock-paper-scissors throw
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every valid move in resolution order
var Moves = []Move{Rock, Paper, Scissors}

// Value returns the move's position in the resolution cycle
func (m Move) Value() int {
	switch m {
	case Rock:
		return 0
	case Paper:
		return 1
	case Scissors:
		return 2
	}
	return -1
}

// Valid reports whether m is one of the three moves
func (m Move) Valid() bool {
	return m.Value() >= 0
}

// Emoji returns the button glyph for the move
func (m Move) Emoji() string {
	switch m {
	case Rock:
		return "🗿"
	case Paper:
		return "📄"
	case Scissors:
		return "✂️"
	}
	return "❓"
}

// ParseMove converts user input into a Move
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid move %q", s)
	}
	return m, nil
}
