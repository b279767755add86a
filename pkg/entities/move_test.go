package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMove(t *testing.T) {
	testCases := []struct {
		input    string
		expected Move
		valid    bool
	}{
		{"rock", Rock, true},
		{"PAPER", Paper, true},
		{" scissors ", Scissors, true},
		{"lizard", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			move, err := ParseMove(tc.input)
			if !tc.valid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, move)
		})
	}
}

func TestMoveValues(t *testing.T) {
	assert.Equal(t, 0, Rock.Value())
	assert.Equal(t, 1, Paper.Value())
	assert.Equal(t, 2, Scissors.Value())
	assert.Equal(t, -1, Move("spock").Value())
	assert.False(t, Move("spock").Valid())
}

func TestSessionStateTerminal(t *testing.T) {
	assert.True(t, SessionSettled.Terminal())
	assert.True(t, SessionVoided.Terminal())
	assert.False(t, SessionAwaitingMoves.Terminal())
	assert.False(t, SessionResolved.Terminal())
}
