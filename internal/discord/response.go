package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/notify"
)

// buttonsPerRow is Discord's limit for components in one action row
const buttonsPerRow = 5

// ResponseEmoji maps error codes to appropriate emojis
var ResponseEmoji = map[types.ErrorCode]string{
	types.ErrInsufficientFunds:  "💸",
	types.ErrUnknownUser:        "👤",
	types.ErrNotAParticipant:    "🚫",
	types.ErrDuplicateMove:      "✋",
	types.ErrSessionNotFound:    "🔍",
	types.ErrSessionExpired:     "⌛",
	types.ErrSessionVoided:      "❌",
	types.ErrTournamentNotFound: "🔍",
	types.ErrTournamentFull:     "👥",
	types.ErrAlreadyJoined:      "✋",
	types.ErrNotCreator:         "👑",
	types.ErrInvalidState:       "⚠️",
	types.ErrInvalidArgument:    "❗",
	types.ErrBracketCorruption:  "💥",
	types.ErrInternalError:      "💥",
	types.ErrDatabaseError:      "💾",
}

// Response represents a Discord interaction response
type Response struct {
	Content    string
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

// NewResponse creates a new Response
func NewResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  false,
	}
}

// NewEphemeralResponse creates a new ephemeral Response (only visible to the user)
func NewEphemeralResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  true,
	}
}

// NewErrorResponse creates a new error Response. Invariant failures are not
// shown to players in detail.
func NewErrorResponse(err error) *Response {
	var gameErr *types.GameError
	if types.As(err, &gameErr) {
		emoji := ResponseEmoji[gameErr.Code]
		if emoji == "" {
			emoji = "❌"
		}
		if gameErr.IsInternal() {
			return NewEphemeralResponse(fmt.Sprintf("%s Something went wrong on our side. Please try again later.", emoji), nil)
		}
		return NewEphemeralResponse(fmt.Sprintf("%s %s", emoji, gameErr.Message), nil)
	}
	return NewEphemeralResponse(fmt.Sprintf("❌ An error occurred: %v", err), nil)
}

// Components renders affordances as rows of buttons
func Components(affordances []notify.Affordance) []discordgo.MessageComponent {
	if len(affordances) == 0 {
		return nil
	}

	rows := make([]discordgo.MessageComponent, 0, (len(affordances)+buttonsPerRow-1)/buttonsPerRow)
	row := make([]discordgo.MessageComponent, 0, buttonsPerRow)
	for _, a := range affordances {
		button := discordgo.Button{
			Label:    a.Label,
			Style:    discordgo.PrimaryButton,
			CustomID: a.Action,
		}
		if a.Emoji != "" {
			button.Emoji = &discordgo.ComponentEmoji{Name: a.Emoji}
		}
		row = append(row, button)

		if len(row) == buttonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = make([]discordgo.MessageComponent, 0, buttonsPerRow)
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

// SendResponse sends a response to a Discord interaction
func SendResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    r.Content,
			Components: r.Components,
			Flags:      getFlags(r.Ephemeral),
		},
	})
}

// UpdateResponse replaces the message the pressed component belongs to
func UpdateResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	components := r.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    r.Content,
			Components: components,
		},
	})
}

// SendErrorResponse sends an error response
func SendErrorResponse(s SessionHandler, i *discordgo.InteractionCreate, err error) error {
	return SendResponse(s, i, NewErrorResponse(err))
}

// Helper functions

func getFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
