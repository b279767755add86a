package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordmock "github.com/fadedpez/rpsarena/internal/discord/mock"
	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ResponseTestSuite struct {
	suite.Suite
	session     *discordmock.SessionHandler
	interaction *discordgo.InteractionCreate
}

func TestResponseSuite(t *testing.T) {
	suite.Run(t, new(ResponseTestSuite))
}

func (s *ResponseTestSuite) SetupTest() {
	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
	s.interaction = &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:   "test_interaction",
			Type: discordgo.InteractionApplicationCommand,
		},
	}
}

func (s *ResponseTestSuite) TestNewEphemeralResponse() {
	// Setup
	components := Components([]notify.Affordance{{Label: "Rock", Action: "move_s1_rock"}})

	// Execute
	resp := NewEphemeralResponse("test content", components)

	// Assert
	s.Equal("test content", resp.Content)
	s.Equal(components, resp.Components)
	s.True(resp.Ephemeral)
	s.False(NewResponse("public", nil).Ephemeral)
}

func (s *ResponseTestSuite) TestNewErrorResponse() {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "simple error",
			err:      errors.New("test error"),
			expected: "❌ An error occurred: test error",
		},
		{
			name:     "precondition failure",
			err:      types.NewGameError(types.ErrInsufficientFunds, "you need 50 tokens"),
			expected: "💸 you need 50 tokens",
		},
		{
			name:     "wrapped game error",
			err:      types.WrapError(types.ErrSessionVoided, "battle cancelled", errors.New("cause")),
			expected: "❌ battle cancelled",
		},
		{
			name:     "invariant failure hides detail",
			err:      types.NewGameError(types.ErrBracketCorruption, "cannot pair 3 players"),
			expected: "💥 Something went wrong on our side. Please try again later.",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// Execute
			resp := NewErrorResponse(tc.err)

			// Assert
			s.Equal(tc.expected, resp.Content)
			s.True(resp.Ephemeral)
		})
	}
}

func (s *ResponseTestSuite) TestComponentsWrapRows() {
	affordances := make([]notify.Affordance, 0, 7)
	for i := 0; i < 7; i++ {
		affordances = append(affordances, notify.Affordance{Label: "b", Emoji: "💰", Action: notify.StakeAction(int64(i + 1))})
	}

	rows := Components(affordances)

	s.Require().Len(rows, 2)
	s.Len(rows[0].(discordgo.ActionsRow).Components, 5)
	s.Len(rows[1].(discordgo.ActionsRow).Components, 2)

	button := rows[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	s.Equal("stake_1", button.CustomID)
	s.Equal("💰", button.Emoji.Name)
	s.Nil(Components(nil))
}

func (s *ResponseTestSuite) TestSendResponse() {
	// Setup
	s.session.On("InteractionRespond", s.interaction.Interaction, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseChannelMessageWithSource &&
			r.Data.Content == "hello" &&
			r.Data.Flags == discordgo.MessageFlagsEphemeral
	})).Return(nil)

	// Execute
	err := SendResponse(s.session, s.interaction, NewEphemeralResponse("hello", nil))

	// Assert
	s.NoError(err)
	s.session.AssertExpectations(s.T())
}

func (s *ResponseTestSuite) TestUpdateResponseClearsButtons() {
	s.session.On("InteractionRespond", s.interaction.Interaction, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseUpdateMessage &&
			r.Data.Components != nil && len(r.Data.Components) == 0
	})).Return(nil)

	err := UpdateResponse(s.session, s.interaction, NewResponse("done", nil))

	s.NoError(err)
	s.session.AssertExpectations(s.T())
}

func (s *ResponseTestSuite) TestSendErrorResponse() {
	s.session.On("InteractionRespond", s.interaction.Interaction, mock.Anything).Return(errors.New("unknown interaction"))

	err := SendErrorResponse(s.session, s.interaction, errors.New("test error"))

	s.Error(err)
	s.session.AssertExpectations(s.T())
}
