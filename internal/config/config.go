package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/AdamBeresnev/tourney-registration/internal/session"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	Port          int    `env:"PORT" envDefault:"4000"`
	BaseURL       string `env:"BASE_URL"`
	FrontendURL   string `env:"FRONTEND_URL"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"tourney.db"`
	MigrationsURL string `env:"MIGRATIONS_URL" envDefault:"file://migrations"`

	OsuClientID     string `env:"OSU_CLIENT_ID,required,notEmpty"`
	OsuClientSecret string `env:"OSU_CLIENT_SECRET,required,notEmpty"`
	OsuRedirectPath string `env:"OSU_REDIRECT_PATH" envDefault:"/auth/osu/callback"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectPath string `env:"DISCORD_REDIRECT_PATH" envDefault:"/auth/discord/callback"`

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	CookieName      string        `env:"COOKIE_NAME" envDefault:"session"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	RefreshCooldown time.Duration `env:"REFRESH_COOLDOWN" envDefault:"1h"`

	RedisURL         string `env:"REDIS_URL"`
	CSRFLegacyFields bool   `env:"CSRF_LEGACY_FIELDS" envDefault:"false"`
}

// Load reads the dotenv file for the current environment, then parses and
// validates the process environment. Variables already set win over the file.
func Load() (*Config, error) {
	file := ".env.dev"
	if strings.TrimSpace(os.Getenv("APP_ENV")) == EnvProduction {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		log.Printf("No %s file found, using environment variables", file)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("APP_ENV must be one of development, test, production; got %q", c.AppEnv)
	}

	if len(c.JWTSecret) < session.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", session.MinSecretLength)
	}

	if c.BaseURL == "" {
		if c.IsProduction() {
			return errors.New("BASE_URL is required in production")
		}
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RefreshCooldown < 0 {
		return errors.New("REFRESH_COOLDOWN must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) DiscordEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

func (c *Config) OsuRedirectURL() string {
	return c.BaseURL + c.OsuRedirectPath
}

func (c *Config) DiscordRedirectURL() string {
	return c.BaseURL + c.DiscordRedirectPath
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
