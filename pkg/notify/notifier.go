package notify

import "context"

// Affordance is an action a player can take in reply to a message, rendered
// by the transport as a button
type Affordance struct {
	Label  string
	Emoji  string
	Action string // opaque action ID routed back to the arena
}

// Message is a transport-neutral notification
type Message struct {
	Text        string
	Affordances []Affordance
}

// Text creates a message without affordances
func Text(text string) Message {
	return Message{Text: text}
}

//go:generate mockgen -source=$GOFILE -destination=mock/notifier.go -package=mock_notify
type Notifier interface {
	// Notify delivers msg to a single player
	Notify(ctx context.Context, playerID string, msg Message) error
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, playerID string, msg Message) error

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, playerID string, msg Message) error {
	return f(ctx, playerID, msg)
}

// Sender queues a notification without waiting for delivery
type Sender interface {
	Send(playerID string, msg Message)
}
