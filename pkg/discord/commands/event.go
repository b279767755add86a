package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/pkg/services/arena"
	"github.com/fadedpez/rpsarena/pkg/services/events"
)

// EventCommand lets server managers start reward events
type EventCommand struct {
	arena *arena.Arena
}

// NewEventCommand creates a new event command handler
func NewEventCommand(a *arena.Arena) *EventCommand {
	return &EventCommand{arena: a}
}

// Command returns the command definition for the event command
func (c *EventCommand) Command() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(events.Kinds()))
	for _, kind := range events.Kinds() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: string(kind), Value: string(kind)})
	}
	permissions := int64(discordgo.PermissionManageServer)

	return &discordgo.ApplicationCommand{
		Name:                     "event",
		Description:              "Start a time-limited arena event",
		DefaultMemberPermissions: &permissions,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "kind",
				Description: "Which modifier to activate",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices:     choices,
			},
			{
				Name:        "minutes",
				Description: "How long the event lasts",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
		},
	}
}

// Handle handles the event command
func (c *EventCommand) Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	kind, ok := option(options, "kind")
	if !ok {
		return discord.SendResponse(s, i, discord.NewEphemeralResponse("❗ Pick an event kind", nil))
	}
	minutes := int64(0)
	if opt, ok := option(options, "minutes"); ok {
		minutes = opt.IntValue()
	}

	modifier, err := c.arena.OnEventActivate(kind.StringValue(), time.Duration(minutes)*time.Minute)
	if err != nil {
		return discord.SendErrorResponse(s, i, err)
	}

	content := fmt.Sprintf("🎉 **%s** is live until <t:%d:t>!", modifier.Kind, modifier.ExpiresAt.Unix())
	return discord.SendResponse(s, i, discord.NewResponse(content, nil))
}
