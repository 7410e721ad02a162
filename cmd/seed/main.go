// Command seed populates the database with demo data for local development.
package main

import (
	"flag"
	"log"

	"discussify/internal/config"
	"discussify/internal/database"
	"discussify/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "number of users to create")
	numCommunities := flag.Int("communities", 10, "number of communities to create")
	numPosts := flag.Int("posts", 80, "number of posts to create")
	clean := flag.Bool("clean", false, "delete existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:       *numUsers,
		NumCommunities: *numCommunities,
		NumPosts:       *numPosts,
		ShouldClean:    *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
