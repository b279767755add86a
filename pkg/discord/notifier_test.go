package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordmock "github.com/fadedpez/rpsarena/internal/discord/mock"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDMNotifierCachesChannels(t *testing.T) {
	// Setup
	session := &discordmock.SessionHandler{}
	session.Test(t)
	session.On("UserChannelCreate", "alice").Return(&discordgo.Channel{ID: "dm-alice"}, nil).Once()
	session.On("ChannelMessageSendComplex", "dm-alice", mock.MatchedBy(func(m *discordgo.MessageSend) bool {
		return m.Content == "⚔️ Battle started!" && len(m.Components) == 1
	})).Return(&discordgo.Message{}, nil).Twice()
	notifier := NewDMNotifier(session)
	msg := notify.Message{Text: "⚔️ Battle started!", Affordances: notify.MoveAffordances("s1")}

	// Execute
	require.NoError(t, notifier.Notify(context.Background(), "alice", msg))
	require.NoError(t, notifier.Notify(context.Background(), "alice", msg))

	// Assert
	session.AssertExpectations(t)
}

func TestDMNotifierErrors(t *testing.T) {
	session := &discordmock.SessionHandler{}
	session.Test(t)
	session.On("UserChannelCreate", "ghost").Return(nil, errors.New("unknown user"))
	session.On("UserChannelCreate", "bob").Return(&discordgo.Channel{ID: "dm-bob"}, nil)
	session.On("ChannelMessageSendComplex", "dm-bob", mock.Anything).Return(nil, errors.New("cannot send messages to this user"))
	notifier := NewDMNotifier(session)

	err := notifier.Notify(context.Background(), "ghost", notify.Text("hi"))
	assert.ErrorContains(t, err, "unknown user")

	err = notifier.Notify(context.Background(), "bob", notify.Text("hi"))
	assert.ErrorContains(t, err, "cannot send messages")
}
