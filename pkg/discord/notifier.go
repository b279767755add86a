package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/pkg/notify"
)

// DMNotifier delivers arena notifications as direct messages
type DMNotifier struct {
	session discord.SessionHandler

	mu       sync.RWMutex
	channels map[string]string // userID -> DM channel ID
}

var _ notify.Notifier = (*DMNotifier)(nil)

// NewDMNotifier creates a notifier sending through session
func NewDMNotifier(session discord.SessionHandler) *DMNotifier {
	return &DMNotifier{
		session:  session,
		channels: make(map[string]string),
	}
}

// Notify implements notify.Notifier
func (n *DMNotifier) Notify(ctx context.Context, playerID string, msg notify.Message) error {
	channelID, err := n.channel(ctx, playerID)
	if err != nil {
		return err
	}

	_, err = n.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Text,
		Components: discord.Components(msg.Affordances),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending DM to %s: %w", playerID, err)
	}
	return nil
}

func (n *DMNotifier) channel(ctx context.Context, playerID string) (string, error) {
	n.mu.RLock()
	channelID, ok := n.channels[playerID]
	n.mu.RUnlock()
	if ok {
		return channelID, nil
	}

	channel, err := n.session.UserChannelCreate(playerID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error opening DM channel for %s: %w", playerID, err)
	}
	if channel == nil {
		return "", fmt.Errorf("no DM channel for %s", playerID)
	}

	n.mu.Lock()
	n.channels[playerID] = channel.ID
	n.mu.Unlock()
	return channel.ID, nil
}
