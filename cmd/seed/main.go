package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/AdamBeresnev/tourney-registration/internal/db"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	file := flag.String("file", "tournaments.yaml", "YAML file with tournament definitions")
	dbPath := flag.String("db", "", "SQLite database path (default $DATABASE_PATH)")
	migrations := flag.String("migrations", "file://migrations", "migration source URL")
	flag.Parse()

	if err := godotenv.Load(".env.dev"); err != nil {
		log.Println("No .env.dev file found, using environment variables")
	}
	if *dbPath == "" {
		*dbPath = os.Getenv("DATABASE_PATH")
	}
	if *dbPath == "" {
		*dbPath = "tourney.db"
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	defs, err := parseSeedFile(raw)
	if err != nil {
		log.Fatalf("Invalid seed file %s: %v", *file, err)
	}

	database, err := db.InitDB(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, *migrations); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	tournaments := service.NewTournamentService(database, store.NewTournamentStore(database))
	if err := tournaments.SeedTournaments(context.Background(), defs); err != nil {
		log.Fatal("Seeding failed: ", err)
	}
	log.Printf("Seeded %d tournament(s) from %s", len(defs), *file)
}
