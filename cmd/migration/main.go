package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fadedpez/rpsarena/pkg/db/migrations"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	// Define command-line flags
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)

	migrateDB := migrateCmd.String("db", "data/rpsarena.db", "Path to SQLite database")
	statusDB := statusCmd.String("db", "data/rpsarena.db", "Path to SQLite database")

	// Show usage if no arguments provided
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		applyMigrations(*migrateDB)

	case "status":
		statusCmd.Parse(os.Args[2:])
		showStatus(*statusDB)

	case "help":
		printUsage()

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/migration migrate [-db PATH]  - Apply pending migrations")
	fmt.Println("  go run ./cmd/migration status [-db PATH]   - List pending migrations")
	fmt.Println("  go run ./cmd/migration help                - Show this help")
}

func openDB(dbPath string) *sql.DB {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	return db
}

func applyMigrations(dbPath string) {
	db := openDB(dbPath)
	defer db.Close()

	if err := migrations.NewMigrator(db).MigrateUp(); err != nil {
		log.Fatalf("Error applying migrations: %v", err)
	}

	fmt.Println("Migrations applied successfully!")
}

func showStatus(dbPath string) {
	db := openDB(dbPath)
	defer db.Close()

	pending, err := migrations.NewMigrator(db).Pending()
	if err != nil {
		log.Fatalf("Error reading migrations: %v", err)
	}

	if len(pending) == 0 {
		fmt.Println("Database is up to date.")
		return
	}
	fmt.Printf("%d pending migration(s):\n", len(pending))
	for _, migration := range pending {
		fmt.Printf("  %s  %s\n", migration.Version, migration.Description)
	}
}
