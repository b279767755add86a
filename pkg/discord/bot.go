package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/internal/logging"
	"github.com/fadedpez/rpsarena/pkg/discord/commands"
	"github.com/fadedpez/rpsarena/pkg/services/arena"
)

// Bot connects the arena to Discord: it registers slash commands and routes
// interactions to the arena
type Bot struct {
	session discord.SessionHandler
	arena   *arena.Arena
	logger  *logging.Logger
	appID   string
	guildID string

	commands   map[string]commands.Command
	tournament *commands.TournamentCommand

	mu         sync.Mutex
	registered []*discordgo.ApplicationCommand
	removers   []func()
}

// NewBot creates a bot serving the arena. An empty guildID registers commands
// globally.
func NewBot(session discord.SessionHandler, a *arena.Arena, appID, guildID string, logger *logging.Logger) *Bot {
	tournament := commands.NewTournamentCommand(a)

	b := &Bot{
		session:    session,
		arena:      a,
		logger:     logger,
		appID:      appID,
		guildID:    guildID,
		commands:   make(map[string]commands.Command),
		tournament: tournament,
	}

	for _, cmd := range []commands.Command{
		commands.NewBattleCommand(a),
		tournament,
		commands.NewStatsCommand(a),
		commands.NewEventCommand(a),
	} {
		b.commands[cmd.Command().Name] = cmd
	}
	return b
}

// Start opens the gateway connection and registers slash commands
func (b *Bot) Start() error {
	b.mu.Lock()
	b.removers = append(b.removers,
		b.session.AddHandler(b.handleReady),
		b.session.AddHandler(b.handleInteraction),
	)
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	return nil
}

// Stop removes registered commands and closes the connection
func (b *Bot) Stop() error {
	b.mu.Lock()
	registered := b.registered
	removers := b.removers
	b.registered = nil
	b.removers = nil
	b.mu.Unlock()

	for _, cmd := range registered {
		if err := b.session.ApplicationCommandDelete(b.appID, b.guildID, cmd.ID); err != nil {
			b.logger.Warn("Error deleting command %s: %v", cmd.Name, err)
		}
	}
	for _, remove := range removers {
		remove()
	}

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("error closing connection: %w", err)
	}
	return nil
}

func (b *Bot) registerCommands() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range []string{"battle", "tournament", "stats", "event"} {
		cmd := b.commands[name]
		created, err := b.session.ApplicationCommandCreate(b.appID, b.guildID, cmd.Command())
		if err != nil {
			return fmt.Errorf("error creating command %s: %w", name, err)
		}
		b.registered = append(b.registered, created)
		b.logger.Info("Registered command: /%s", name)
	}
	return nil
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		b.logger.Info("Bot is ready: %s", r.User.Username)
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.route(context.Background(), i)
}

// route dispatches an interaction to the matching command or component
// handler
func (b *Bot) route(ctx context.Context, i *discordgo.InteractionCreate) {
	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := b.commands[name]
		if !ok {
			b.logger.Warn("Unknown command: %s", name)
			return
		}
		err = cmd.Handle(ctx, b.session, i)

	case discordgo.InteractionMessageComponent:
		err = b.handleComponent(ctx, i)
	}

	if err != nil {
		b.logger.Error("Error responding to interaction %s: %v", i.ID, err)
	}
}
