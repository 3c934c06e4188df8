package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/AdamBeresnev/tourney-registration/internal/config"
	"github.com/AdamBeresnev/tourney-registration/internal/db"
	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
)

func main() {
	pace := flag.Duration("pace", service.DefaultRankPace, "delay between osu! API calls")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	osu := provider.NewOsuClient(provider.OsuConfig{
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ranks := service.NewRankService(store.NewUserStore(database), osu, *pace)
	result, err := ranks.FreezeRanks(ctx)
	if err != nil {
		log.Fatal("Rank freeze aborted: ", err)
	}
	log.Printf("Froze ranks: %d updated, %d failed", result.Updated, result.Failed)
}
