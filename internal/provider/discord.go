package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"golang.org/x/oauth2"
)

const scopeJoinGuild = "guilds.join"

// DiscordClient wraps the goth Discord provider for linking a secondary
// identity and refreshing its token.
type DiscordClient struct {
	provider *discord.Provider
}

func NewDiscordClient(clientID, clientSecret, callbackURL string, httpClient *http.Client) *DiscordClient {
	p := discord.New(clientID, clientSecret, callbackURL, discord.ScopeIdentify, scopeJoinGuild)
	if httpClient != nil {
		p.HTTPClient = httpClient
	}
	return &DiscordClient{provider: p}
}

// BeginAuth returns the authorize URL and the serialized handshake session,
// which the caller keeps until the callback.
func (c *DiscordClient) BeginAuth(state string) (authURL string, session string, err error) {
	sess, err := c.provider.BeginAuth(state)
	if err != nil {
		return "", "", fmt.Errorf("begin discord auth: %w", err)
	}
	authURL, err = sess.GetAuthURL()
	if err != nil {
		return "", "", fmt.Errorf("discord auth url: %w", err)
	}
	return authURL, sess.Marshal(), nil
}

// CompleteAuth exchanges the callback code and fetches the Discord user.
func (c *DiscordClient) CompleteAuth(session string, params url.Values) (goth.User, error) {
	sess, err := c.provider.UnmarshalSession(session)
	if err != nil {
		return goth.User{}, fmt.Errorf("restore discord session: %w", err)
	}
	if _, err := sess.Authorize(c.provider, params); err != nil {
		return goth.User{}, fmt.Errorf("authorize discord: %w", err)
	}
	user, err := c.provider.FetchUser(sess)
	if err != nil {
		return goth.User{}, fmt.Errorf("fetch discord user: %w", err)
	}
	return user, nil
}

// Refresh performs the refresh-token grant against Discord.
func (c *DiscordClient) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	return c.provider.RefreshToken(refreshToken)
}
