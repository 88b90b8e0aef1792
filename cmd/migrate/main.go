package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"tutorchat/internal/config"
	"tutorchat/pkg/database"
)

const usage = `
TutorChat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run GORM migrations
  status      Show database connection status
  seed        Seed the database with an admin account
  seed-dev    Seed with demo tutors, students and conversations

Flags:
  -admin-email string  Admin email for seeding (default "admin@tutorchat.local")
  -admin-pass string   Admin password for seeding (default "Admin@123!")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed
  go run cmd/migrate/main.go seed-dev
`

func main() {
	adminEmail := flag.String("admin-email", "admin@tutorchat.local", "Admin email for seeding")
	adminPass := flag.String("admin-pass", "Admin@123!", "Admin password for seeding")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch command {
	case "up":
		runMigrationsUp(db)
	case "status":
		showStatus(db)
	case "seed":
		runSeed(db, *adminEmail, *adminPass)
	case "seed-dev":
		runSeedDev(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB) {
	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully!")
}

func showStatus(db *gorm.DB) {
	log.Println("Checking database status...")

	if err := database.HealthCheck(context.Background(), db); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"users", "conversations", "conversation_participants", "messages"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			log.Printf("Table %-26s does not exist", table)
			continue
		}
		var count int64
		db.Table(table).Count(&count)
		log.Printf("Table %-26s exists (%d rows)", table, count)
	}
}

func runSeed(db *gorm.DB, adminEmail, adminPass string) {
	log.Println("Seeding database (admin only)...")

	cfg := database.DefaultSeedConfig()
	cfg.AdminEmail = adminEmail
	cfg.AdminPassword = adminPass
	cfg.DemoData = false

	result, err := database.Seed(db, cfg)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Admin user created/verified: %s (ID: %s)", adminEmail, result.Admin.ID)
}

func runSeedDev(db *gorm.DB) {
	log.Println("Seeding database (development mode)...")

	result, err := database.Seed(db, database.DefaultSeedConfig())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seed summary:")
	log.Printf("   - Admin user: %s", result.Admin.Email)
	log.Printf("   - Demo users: %d", len(result.Users))
	log.Printf("   - Conversations: %d", len(result.Conversations))
	log.Printf("   - Messages: %d", len(result.Messages))
}
