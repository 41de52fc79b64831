package main

import (
	"log"
	"log/slog"

	"github.com/sparklink-app/sparklink/internal/config"
	"github.com/sparklink-app/sparklink/internal/db"
)

func main() {
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.EnsureDemoData(database, slog.Default()); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
