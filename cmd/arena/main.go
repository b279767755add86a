package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadedpez/rpsarena/internal/config"
	"github.com/fadedpez/rpsarena/internal/discord"
	"github.com/fadedpez/rpsarena/internal/logging"
	bot "github.com/fadedpez/rpsarena/pkg/discord"
	"github.com/fadedpez/rpsarena/pkg/notify"
	accountRepo "github.com/fadedpez/rpsarena/pkg/repositories/account"
	matchRepo "github.com/fadedpez/rpsarena/pkg/repositories/match"
	"github.com/fadedpez/rpsarena/pkg/scheduler"
	"github.com/fadedpez/rpsarena/pkg/services/arena"
	"github.com/jonboulle/clockwork"
)

func main() {
	logger := logging.NewLogger(logging.INFO)

	if err := run(logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// run starts the arena and blocks until an interrupt. Every deferred cleanup
// runs before main exits.
func run(logger *logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))

	accounts, results, indices, err := openStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("error opening storage: %w", err)
	}
	defer accounts.Close()
	defer results.Close()

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dispatcher := notify.NewDispatcher(bot.NewDMNotifier(session), 0, 0)
	defer dispatcher.Stop()

	clock := clockwork.NewRealClock()
	a := arena.New(accounts, results, dispatcher, clock, arena.Config{
		StartingTokens:     cfg.StartingTokens,
		StakeTiers:         cfg.StakeTiers,
		TournamentEntryFee: cfg.TournamentEntryFee,
		MoveTimeout:        cfg.MoveTimeout,
	}, logger)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maintenance := scheduler.NewMaintenanceScheduler(clock, a.Matches(), a.Events(), indices, scheduler.MaintenanceConfig{
		SweepInterval:  cfg.SweepInterval,
		IndexRetention: cfg.ElasticsearchRetention,
	})
	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("error starting maintenance: %w", err)
	}
	defer maintenance.Stop()

	guildID := cfg.GuildID
	if !cfg.IsDevelopment() {
		// Production registers commands globally
		guildID = ""
	}
	b := bot.NewBot(session, a, cfg.AppID, guildID, logger)
	if err := b.Start(); err != nil {
		return fmt.Errorf("error starting bot: %w", err)
	}

	logger.Info("Arena is running. Press Ctrl+C to exit")

	// Wait for interrupt signal to gracefully shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	if err := b.Stop(); err != nil {
		logger.Warn("Error stopping bot: %v", err)
	}
	return nil
}

// openStorage builds the account and match repositories from config. The
// returned IndexPruner is nil unless Elasticsearch is configured.
func openStorage(cfg *config.Config, logger *logging.Logger) (accountRepo.Repository, matchRepo.Repository, scheduler.IndexPruner, error) {
	var accounts accountRepo.Repository
	var results matchRepo.Repository

	switch cfg.StorageType {
	case "sqlite":
		path := cfg.SQLitePath()
		logger.Info("Using SQLite storage at %s", path)

		sqliteAccounts, err := accountRepo.NewSQLiteRepository(path)
		if err != nil {
			return nil, nil, nil, err
		}
		sqliteResults, err := matchRepo.NewSQLiteRepository(path)
		if err != nil {
			sqliteAccounts.Close()
			return nil, nil, nil, err
		}
		accounts, results = sqliteAccounts, sqliteResults

	default:
		logger.Info("Using in-memory storage (data will be lost on restart)")
		accounts = accountRepo.NewMemoryRepository()
		results = matchRepo.NewMemoryRepository()
	}

	if !cfg.SearchEnabled() {
		return accounts, results, nil, nil
	}

	search, err := matchRepo.NewElasticsearchRepository(results, &matchRepo.ElasticsearchConfig{
		URL:         cfg.ElasticsearchURL,
		Username:    cfg.ElasticsearchUsername,
		Password:    cfg.ElasticsearchPassword,
		IndexPrefix: cfg.ElasticsearchIndexPrefix,
	})
	if err != nil {
		// History still works from the base repository
		logger.Warn("Elasticsearch unavailable, continuing without search: %v", err)
		return accounts, results, nil, nil
	}
	logger.Info("Indexing match results into Elasticsearch at %s", cfg.ElasticsearchURL)
	return accounts, search, search, nil
}
