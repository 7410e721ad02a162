// Command migrate applies the database schema. Production profiles skip
// AutoMigrate on boot, so this runs it explicitly during deploys.
package main

import (
	"log"

	"discussify/internal/config"
	"discussify/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")
}
