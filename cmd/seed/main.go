package main

import (
	"log"

	"github.com/oggyb/anonchat/internal/config"
	"github.com/oggyb/anonchat/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()
	if cfg.DB.Driver == "memory" {
		log.Fatal("nothing to seed: DB_DRIVER is memory")
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedDemoData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
