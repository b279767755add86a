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
)

// historyLimit is how many recent battles /stats shows
const historyLimit = 5

// StatsCommand handles the /stats command for displaying a player's balance,
// record and recent battles
type StatsCommand struct {
	arena *arena.Arena
}

// NewStatsCommand creates a new stats command handler
func NewStatsCommand(a *arena.Arena) *StatsCommand {
	return &StatsCommand{arena: a}
}

// Command returns the command definition for the stats command
func (c *StatsCommand) Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "stats",
		Description: "View your tokens, rating and recent battles",
	}
}

// Handle handles the stats command
func (c *StatsCommand) Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) error {
	userID := UserID(i)

	account, err := c.arena.OnBalance(ctx, userID)
	if err != nil {
		return discord.SendErrorResponse(s, i, err)
	}

	// History is optional; a search outage still shows the balance
	history, err := c.arena.OnHistory(ctx, userID, historyLimit)
	if err != nil {
		history = nil
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{createStatsEmbed(account, history)},
			Components: discord.Components(notify.StakeAffordances(c.arena.StakeTiers())),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// createStatsEmbed creates an embed for a player's stats
func createStatsEmbed(account *entities.Account, history []*entities.MatchResult) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📊 Arena Stats",
		Color: 0xFFD700,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Tokens", Value: fmt.Sprintf("%d", account.Tokens), Inline: true},
			{Name: "⭐ Rating", Value: fmt.Sprintf("%d", account.Rating), Inline: true},
			{Name: "⚔️ Record", Value: fmt.Sprintf("%dW / %dL", account.Wins, account.Losses), Inline: true},
		},
	}

	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, result := range history {
			lines = append(lines, formatResult(result, account.UserID))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Recent battles",
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func formatResult(result *entities.MatchResult, userID string) string {
	opponent := result.PlayerA
	if opponent == userID {
		opponent = result.PlayerB
	}

	switch {
	case result.State == entities.SessionVoided:
		return fmt.Sprintf("❌ vs <@%s>: cancelled", opponent)
	case result.WinnerID == "":
		return fmt.Sprintf("🤝 vs <@%s>: draw", opponent)
	case result.WinnerID == userID:
		if result.TournamentID != "" {
			return fmt.Sprintf("🏆 vs <@%s>: won (tournament round %d)", opponent, result.Round)
		}
		return fmt.Sprintf("🏆 vs <@%s>: won %d tokens", opponent, result.Prize)
	default:
		if result.TournamentID != "" {
			return fmt.Sprintf("💀 vs <@%s>: lost (tournament round %d)", opponent, result.Round)
		}
		return fmt.Sprintf("💀 vs <@%s>: lost %d tokens", opponent, result.Stake)
	}
}
