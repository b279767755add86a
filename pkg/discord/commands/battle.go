package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/fadedpez/rpsarena/pkg/services/arena"
)

// BattleCommand handles /battle by offering the stake tiers
type BattleCommand struct {
	arena *arena.Arena
}

// NewBattleCommand creates a new battle command handler
func NewBattleCommand(a *arena.Arena) *BattleCommand {
	return &BattleCommand{arena: a}
}

// Command returns the command definition for the battle command
func (c *BattleCommand) Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "battle",
		Description: "Stake tokens on a game of rock, paper, scissors",
	}
}

// Handle handles the battle command
func (c *BattleCommand) Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) error {
	account, err := c.arena.OnBalance(ctx, UserID(i))
	if err != nil {
		return discord.SendErrorResponse(s, i, err)
	}

	content := "⚔️ Choose your stake! You'll be matched with the next player who picks the same amount.\n" +
		"💰 Your balance: " + formatTokens(account.Tokens)
	components := discord.Components(notify.StakeAffordances(c.arena.StakeTiers()))
	return discord.SendResponse(s, i, discord.NewEphemeralResponse(content, components))
}
