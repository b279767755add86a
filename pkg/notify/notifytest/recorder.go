// Package notifytest provides a notify.Sender that records messages for tests.
package notifytest

import (
	"strings"
	"sync"

	"github.com/fadedpez/rpsarena/pkg/notify"
)

// Recorder is a notify.Sender that keeps every message in memory
type Recorder struct {
	mu       sync.Mutex
	messages map[string][]notify.Message
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{messages: make(map[string][]notify.Message)}
}

// Send implements notify.Sender
func (r *Recorder) Send(playerID string, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[playerID] = append(r.messages[playerID], msg)
}

// Messages returns what a player received, in order
func (r *Recorder) Messages(playerID string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.messages[playerID]...)
}

// Last returns the most recent message for a player
func (r *Recorder) Last(playerID string) (notify.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[playerID]
	if len(msgs) == 0 {
		return notify.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Contains reports whether any message to the player contains substr
func (r *Recorder) Contains(playerID, substr string) bool {
	for _, msg := range r.Messages(playerID) {
		if strings.Contains(msg.Text, substr) {
			return true
		}
	}
	return false
}

// Reset forgets every recorded message
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = make(map[string][]notify.Message)
}
