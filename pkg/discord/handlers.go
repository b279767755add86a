package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/internal/types"
	"github.com/fadedpez/rpsarena/pkg/discord/commands"
	"github.com/fadedpez/rpsarena/pkg/notify"
	"github.com/fadedpez/rpsarena/pkg/services/match"
	"github.com/fadedpez/rpsarena/pkg/services/matchmaking"
)

// handleComponent handles button presses. Button IDs are the affordance
// actions the arena attached to its messages.
func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) error {
	customID := i.MessageComponentData().CustomID

	action, err := notify.ParseAction(customID)
	if err != nil {
		b.logger.Warn("Unknown component interaction: %s", customID)
		return discord.SendErrorResponse(b.session, i, types.NewGameError(types.ErrInvalidArgument, "That button isn't recognized"))
	}

	switch action.Kind {
	case notify.ActionStake:
		return b.handleStake(ctx, i, action.Stake)
	case notify.ActionCancelStake:
		return b.handleCancelStake(ctx, i, action.Stake)
	case notify.ActionMove:
		return b.handleMove(ctx, i, action)
	case notify.ActionJoin:
		return b.tournament.Join(ctx, b.session, i, action.TournamentID)
	}
	return nil
}

func (b *Bot) handleStake(ctx context.Context, i *discordgo.InteractionCreate, stake int64) error {
	outcome, err := b.arena.OnStakeSelect(ctx, commands.UserID(i), stake)
	if err != nil {
		return discord.SendErrorResponse(b.session, i, err)
	}

	switch outcome.Status {
	case matchmaking.StatusQueued:
		content := fmt.Sprintf("⏳ Waiting for an opponent at %d tokens...", stake)
		if outcome.Replaced {
			content = fmt.Sprintf("⏳ Still waiting for an opponent at %d tokens...", stake)
		}
		leave := discord.Components([]notify.Affordance{{
			Label:  "Leave queue",
			Emoji:  "🚪",
			Action: notify.CancelStakeAction(stake),
		}})
		return discord.SendResponse(b.session, i, discord.NewEphemeralResponse(content, leave))

	case matchmaking.StatusMatched:
		content := fmt.Sprintf("⚔️ Matched with <@%s> for %d tokens! Check your DMs to pick your move.", outcome.Opponent, stake)
		return discord.SendResponse(b.session, i, discord.NewEphemeralResponse(content, nil))

	default:
		return discord.SendErrorResponse(b.session, i, outcome.Reason)
	}
}

func (b *Bot) handleCancelStake(ctx context.Context, i *discordgo.InteractionCreate, stake int64) error {
	removed, err := b.arena.OnStakeCancel(ctx, commands.UserID(i), stake)
	if err != nil {
		return discord.SendErrorResponse(b.session, i, err)
	}

	content := "🚪 You left the queue."
	if !removed {
		content = "You're not waiting in that queue anymore."
	}
	return discord.UpdateResponse(b.session, i, discord.NewResponse(content, nil))
}

func (b *Bot) handleMove(ctx context.Context, i *discordgo.InteractionCreate, action notify.Action) error {
	outcome, err := b.arena.OnMoveSubmit(ctx, action.SessionID, commands.UserID(i), action.Move)
	if err != nil {
		return discord.SendErrorResponse(b.session, i, err)
	}

	var content string
	switch outcome.Status {
	case match.MoveRecorded:
		content = fmt.Sprintf("%s You chose **%s**. Waiting for your opponent...", outcome.Move.Emoji(), outcome.Move)
	case match.MoveDuplicate:
		content = fmt.Sprintf("✋ You already chose **%s**.", outcome.Move)
	case match.MoveResolved:
		content = fmt.Sprintf("%s You chose **%s**. Results are on their way!", outcome.Move.Emoji(), outcome.Move)
		if outcome.Resolution != nil && outcome.Resolution.Replay {
			content = "🔁 Draw! Pick again in the new message."
		}
	}
	return discord.UpdateResponse(b.session, i, discord.NewResponse(content, nil))
}
