package main

import (
	"net/http"
	"strings"

	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/config"
	"github.com/AdamBeresnev/tourney-registration/internal/csrf"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/middleware"
	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/AdamBeresnev/tourney-registration/internal/session"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type application struct {
	cfg        *config.Config
	clock      clock.Clock
	handshakes *scs.SessionManager
	codec      *session.Codec
	cookies    httputil.Cookies
	gate       *middleware.Gate

	osu     *provider.OsuClient
	discord *provider.DiscordClient

	tournaments   *service.TournamentService
	credentials   *service.CredentialService
	profiles      *service.ProfileService
	discordLinks  *service.DiscordService
	registrations *service.RegistrationService
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if origin := strings.TrimRight(app.cfg.FrontendURL, "/"); origin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{origin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", csrf.HeaderName},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	g := app.gate

	r.Get("/health", app.health)
	r.Get("/status", app.status)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(app.handshakes.LoadAndSave)
			r.Get("/osu/login", app.osuLogin)
			r.Get("/osu/callback", app.osuCallback)

			r.Group(func(r chi.Router) {
				r.Use(g.RequireAuth)
				r.Get("/discord/login", app.discordLogin)
				r.Get("/discord/callback", app.discordCallback)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(g.RequireAuth)
			r.Use(g.VerifyCSRF)
			r.Get("/me", app.me)
			r.Post("/osu/refresh", app.refreshProfile)
			r.Post("/logout", app.logout)
			r.Post("/discord/unlink", app.discordUnlink)
		})
	})

	r.Route("/registration", func(r chi.Router) {
		r.Use(g.RequireAuth)
		r.Use(g.VerifyCSRF)
		r.Use(g.AttachTournament)
		r.Use(g.RequireRegistrationOpen)
		r.Post("/register", app.register)
		r.Post("/unregister", app.unregister)
	})

	r.Route("/bracket", func(r chi.Router) {
		r.Use(g.AttachTournament)
		r.With(g.RequireBracketActive).Get("/", app.bracket)
		r.With(g.RequireAuth, g.VerifyCSRF, g.RequireRoundParam("round")).
			Post("/rounds/{round}/checkin", app.checkIn)
	})

	r.Route("/admin/tournaments/{slug}", func(r chi.Router) {
		r.Use(g.RequireAuth)
		r.Use(g.VerifyCSRF)
		r.Use(g.RequireRole(users.RoleAdministrator, users.RoleOrganiser))
		r.Put("/registration/override", app.setRegistrationOverride)
		r.Put("/bracket/override", app.setBracketOverride)
	})

	return r
}
