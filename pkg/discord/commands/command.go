package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
)

// Command is a slash command the bot registers and routes to
type Command interface {
	Command() *discordgo.ApplicationCommand
	Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) error
}

// UserID returns the ID of the user who triggered an interaction, in a guild
// or a DM
func UserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// subcommand returns the first option of a command with subcommands
func subcommand(i *discordgo.InteractionCreate) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return nil, false
	}
	return options[0], true
}

// option finds a named option among a command's or subcommand's options
func option(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}
