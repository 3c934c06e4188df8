package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/config"
	"github.com/AdamBeresnev/tourney-registration/internal/csrf"
	"github.com/AdamBeresnev/tourney-registration/internal/db"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/middleware"
	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/refreshgate"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/AdamBeresnev/tourney-registration/internal/session"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsURL); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	clk := clock.System()

	codec, err := session.NewCodec([]byte(cfg.JWTSecret), cfg.SessionTTL, clk)
	if err != nil {
		log.Fatal(err)
	}

	// scs only holds the short-lived OAuth handshake; the login itself is the
	// signed session cookie.
	handshakes := scs.New()
	handshakes.Lifetime = time.Hour
	handshakes.Store = sqlite3store.New(database.DB)
	handshakes.Cookie.Name = "oauth_handshake"
	handshakes.Cookie.Secure = cfg.IsProduction()
	handshakes.Cookie.SameSite = http.SameSiteLaxMode

	var cooldowns refreshgate.CooldownStore
	if cfg.RedisURL != "" {
		rdb, err := refreshgate.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
		cooldowns = refreshgate.NewRedisStore(rdb, cfg.RefreshCooldown)
		log.Println("Refresh cooldowns shared via Redis")
	}
	gate := refreshgate.New(cooldowns, cfg.RefreshCooldown)

	osu := provider.NewOsuClient(provider.OsuConfig{
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
		RedirectURL:  cfg.OsuRedirectURL(),
	})

	refreshers := map[users.Provider]service.TokenRefresher{users.ProviderOsu: osu}
	var discord *provider.DiscordClient
	if cfg.DiscordEnabled() {
		discord = provider.NewDiscordClient(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURL(), nil)
		refreshers[users.ProviderDiscord] = discord
	} else {
		log.Println("Discord linking disabled: DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET not set")
	}

	userStore := store.NewUserStore(database)
	tournamentStore := store.NewTournamentStore(database)

	tournaments := service.NewTournamentService(database, tournamentStore)
	credentials := service.NewCredentialService(userStore, clk, refreshers)

	app := &application{
		cfg:           cfg,
		clock:         clk,
		handshakes:    handshakes,
		codec:         codec,
		cookies:       httputil.Cookies{SessionName: cfg.CookieName, Secure: cfg.IsProduction()},
		gate:          middleware.NewGate(codec, cfg.CookieName, csrf.NewGuard(cfg.CSRFLegacyFields), tournaments, clk),
		osu:           osu,
		discord:       discord,
		tournaments:   tournaments,
		credentials:   credentials,
		profiles:      service.NewProfileService(userStore, credentials, osu, gate, clk),
		discordLinks:  service.NewDiscordService(userStore, credentials),
		registrations: service.NewRegistrationService(userStore),
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
