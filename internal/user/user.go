package users

import (
	"time"
)

// DefaultCountryCode is stored when the provider does not report a country.
const DefaultCountryCode = "XX"

type User struct {
	UserID           string    `db:"user_id" json:"user_id"`
	Username         string    `db:"username" json:"username"`
	CountryCode      string    `db:"country_code" json:"country_code"`
	AvatarURL        *string   `db:"avatar_url" json:"avatar_url"`
	GlobalRank       *int      `db:"global_rank" json:"global_rank"`
	CountryRank      *int      `db:"country_rank" json:"country_rank"`
	DiscordID        *string   `db:"discord_id" json:"discord_id"`
	DiscordUsername  *string   `db:"discord_username" json:"discord_username"`
	DiscordAvatarURL *string   `db:"discord_avatar_url" json:"discord_avatar_url"`
	Registered       bool      `db:"registered" json:"registered"`
	WantsCaptain     bool      `db:"wants_captain" json:"wants_captain"`
	CreatedAt        time.Time `db:"created_at" json:"-"`
	UpdatedAt        time.Time `db:"updated_at" json:"-"`
}

// Provider names the external identity a credential belongs to.
type Provider string

const (
	ProviderOsu     Provider = "osu"
	ProviderDiscord Provider = "discord"
)

// Credential is a delegated provider token pair for one subject.
type Credential struct {
	UserID       string    `db:"user_id"`
	Provider     Provider  `db:"provider"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	IssuedAt     time.Time `db:"issued_at"`
}

// Expired reports whether the access token is unusable at now, allowing for skew.
func (c *Credential) Expired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(c.ExpiresAt)
}
