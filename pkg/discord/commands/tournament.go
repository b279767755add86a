package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/fadedpez/rpsarena/pkg/services/arena"
	"github.com/fadedpez/rpsarena/pkg/services/tournament"
)

// TournamentCommand handles /tournament create|join|cancel|list
type TournamentCommand struct {
	arena *arena.Arena
}

// NewTournamentCommand creates a new tournament command handler
func NewTournamentCommand(a *arena.Arena) *TournamentCommand {
	return &TournamentCommand{arena: a}
}

// Command returns the command definition for the tournament command
func (c *TournamentCommand) Command() *discordgo.ApplicationCommand {
	idOption := []*discordgo.ApplicationCommandOption{
		{
			Name:        "id",
			Description: "Tournament ID",
			Type:        discordgo.ApplicationCommandOptionString,
			Required:    true,
		},
	}

	return &discordgo.ApplicationCommand{
		Name:        "tournament",
		Description: "8-player rock, paper, scissors tournaments",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "create",
				Description: "Open a new tournament and pay its entry fee",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "join",
				Description: "Join an open tournament",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     idOption,
			},
			{
				Name:        "cancel",
				Description: "Cancel a tournament you created before it fills",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     idOption,
			},
			{
				Name:        "list",
				Description: "List tournaments taking registrations",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// Handle handles the tournament command
func (c *TournamentCommand) Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) error {
	sub, ok := subcommand(i)
	if !ok {
		return discord.SendResponse(s, i, discord.NewEphemeralResponse("❗ Try /tournament create, join, cancel or list", nil))
	}

	userID := UserID(i)
	tournamentID := ""
	if id, ok := option(sub.Options, "id"); ok {
		tournamentID = id.StringValue()
	}

	switch sub.Name {
	case "create":
		view, err := c.arena.OnTournamentCreate(ctx, userID)
		if err != nil {
			return discord.SendErrorResponse(s, i, err)
		}
		content := fmt.Sprintf("🏟️ <@%s> opened a tournament! Entry fee: %s, %d spots left.\nID: `%s`",
			userID, formatTokens(view.EntryFee), view.Spots(), view.ID)
		return discord.SendResponse(s, i, discord.NewResponse(content, discord.Components([]notify.Affordance{tournament.JoinAffordance(view)})))

	case "join":
		return c.join(ctx, s, i, userID, tournamentID)

	case "cancel":
		view, err := c.arena.OnTournamentCancel(ctx, tournamentID, userID)
		if err != nil {
			return discord.SendErrorResponse(s, i, err)
		}
		content := fmt.Sprintf("❌ Tournament `%s` cancelled. %d entry fees refunded.", view.ID, len(view.Entrants))
		return discord.SendResponse(s, i, discord.NewResponse(content, nil))

	case "list":
		return c.list(s, i)
	}

	return discord.SendResponse(s, i, discord.NewEphemeralResponse("❗ Unknown subcommand", nil))
}

// join registers userID; shared by /tournament join and the join button
func (c *TournamentCommand) join(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate, userID, tournamentID string) error {
	outcome, err := c.arena.OnTournamentJoin(ctx, tournamentID, userID)
	if err != nil {
		return discord.SendErrorResponse(s, i, err)
	}

	view := outcome.Tournament
	content := fmt.Sprintf("✅ You joined the tournament (%d/%d). Prize pool: %s",
		len(view.Players), entities.TournamentCapacity, formatTokens(view.PrizePool))
	if outcome.Started {
		content += "\n🏟️ The bracket is full! Check your DMs for your first match."
	}
	return discord.SendResponse(s, i, discord.NewEphemeralResponse(content, nil))
}

// Join handles a press of a tournament's join button
func (c *TournamentCommand) Join(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate, tournamentID string) error {
	return c.join(ctx, s, i, UserID(i), tournamentID)
}

func (c *TournamentCommand) list(s discord.SessionHandler, i *discordgo.InteractionCreate) error {
	open := c.arena.OpenTournaments()
	if len(open) == 0 {
		return discord.SendResponse(s, i, discord.NewEphemeralResponse("No tournaments are open. Start one with /tournament create!", nil))
	}

	lines := make([]string, 0, len(open))
	affordances := make([]notify.Affordance, 0, len(open))
	for _, view := range open {
		lines = append(lines, fmt.Sprintf("• `%s` by <@%s>: %d/%d players, entry %s",
			view.ID, view.CreatorID, len(view.Players), entities.TournamentCapacity, formatTokens(view.EntryFee)))
		affordances = append(affordances, tournament.JoinAffordance(view))
	}
	return discord.SendResponse(s, i, discord.NewEphemeralResponse("🏟️ Open tournaments:\n"+strings.Join(lines, "\n"), discord.Components(affordances)))
}

func formatTokens(n int64) string {
	return fmt.Sprintf("%d tokens", n)
}
