package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARN"))
	assert.Equal(t, ERROR, ParseLevel("Error"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, WARN)

	logger.Info("hidden %d", 1)
	assert.Empty(t, buf.String())

	logger.Warn("shown %d", 2)
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "logger_test.go")
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, DEBUG)

	logger.LogError(types.WrapError(types.ErrBracketCorruption, "odd player count", errors.New("3 players")))
	assert.Contains(t, buf.String(), "Invariant failure")
	assert.Contains(t, buf.String(), "BRACKET_CORRUPTION")
	assert.Contains(t, buf.String(), "3 players")

	buf.Reset()
	logger.LogError(types.NewGameError(types.ErrDuplicateMove, "already moved"))
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "DUPLICATE_MOVE")

	buf.Reset()
	logger.LogError(errors.New("plain"))
	assert.Contains(t, buf.String(), "Unexpected error: plain")
}
