package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"minicasino/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}

	db, err := sql.Open("pgx", database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := database.RunMigrations(db, migrationsPath); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")

	case "down":
		log.Println("Rolling back last migration...")
		if err := database.RollbackMigration(db, migrationsPath); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rollback completed successfully")

	case "version":
		version, dirty, err := database.GetMigrationVersion(db, migrationsPath)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			log.Printf("Current version: %d (DIRTY - needs manual intervention)", version)
		} else {
			log.Printf("Current version: %d", version)
		}

	case "create":
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate create <migration_name>")
		}
		createMigration(migrationsPath, os.Args[2])

	default:
		log.Printf("Unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

// createMigration writes an empty up/down pair numbered one past the highest
// version already on disk.
func createMigration(migrationsPath, name string) {
	files, err := os.ReadDir(migrationsPath)
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	maxVersion := 0
	for _, file := range files {
		parts := strings.SplitN(file.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		if v, err := strconv.Atoi(parts[0]); err == nil && v > maxVersion {
			maxVersion = v
		}
	}
	version := maxVersion + 1

	upFile := fmt.Sprintf("%s/%06d_%s.up.sql", migrationsPath, version, name)
	downFile := fmt.Sprintf("%s/%06d_%s.down.sql", migrationsPath, version, name)

	if err := os.WriteFile(upFile, []byte("-- "+name+"\n"), 0644); err != nil {
		log.Fatalf("Failed to create up migration: %v", err)
	}
	if err := os.WriteFile(downFile, []byte("-- revert "+name+"\n"), 0644); err != nil {
		log.Fatalf("Failed to create down migration: %v", err)
	}

	log.Printf("Created migration files:")
	log.Printf("   - %s", upFile)
	log.Printf("   - %s", downFile)
}

func printUsage() {
	fmt.Println("Database migration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate up              Run all pending migrations")
	fmt.Println("  migrate down            Rollback the last migration")
	fmt.Println("  migrate version         Show current migration version")
	fmt.Println("  migrate create <name>   Create a new migration file pair")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  CASINO_DB_HOST       Database host (default: localhost)")
	fmt.Println("  CASINO_DB_PORT       Database port (default: 5432)")
	fmt.Println("  CASINO_DB_DATABASE   Database name (default: casino)")
	fmt.Println("  CASINO_DB_USERNAME   Database user (default: postgres)")
	fmt.Println("  CASINO_DB_PASSWORD   Database password (default: postgres)")
	fmt.Println("  MIGRATIONS_PATH      Path to migrations (default: ./migrations)")
}
