package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	OsuAuthURL  = "https://osu.ppy.sh/oauth/authorize"
	OsuTokenURL = "https://osu.ppy.sh/oauth/token"
	OsuAPIBase  = "https://osu.ppy.sh/api/v2"
)

type OsuConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides, mostly for tests. Empty means the public osu! endpoints.
	AuthURL  string
	TokenURL string
	APIBase  string

	HTTPClient *http.Client
}

type OsuStatistics struct {
	GlobalRank  *int `json:"global_rank"`
	CountryRank *int `json:"country_rank"`
}

type OsuUser struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	CountryCode string         `json:"country_code"`
	AvatarURL   string         `json:"avatar_url"`
	Statistics  *OsuStatistics `json:"statistics"`
}

func (u *OsuUser) GlobalRank() *int {
	if u.Statistics == nil {
		return nil
	}
	return u.Statistics.GlobalRank
}

func (u *OsuUser) CountryRank() *int {
	if u.Statistics == nil {
		return nil
	}
	return u.Statistics.CountryRank
}

// OsuClient talks to the osu! OAuth and API v2 endpoints.
type OsuClient struct {
	oauth      *oauth2.Config
	app        *clientcredentials.Config
	apiBase    string
	httpClient *http.Client

	appTokensOnce sync.Once
	appTokens     oauth2.TokenSource
}

func NewOsuClient(cfg OsuConfig) *OsuClient {
	authURL := orDefault(cfg.AuthURL, OsuAuthURL)
	tokenURL := orDefault(cfg.TokenURL, OsuTokenURL)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &OsuClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		app: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"public"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		apiBase:    strings.TrimRight(orDefault(cfg.APIBase, OsuAPIBase), "/"),
		httpClient: httpClient,
	}
}

func (c *OsuClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange performs the authorization-code grant.
func (c *OsuClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(c.withClient(ctx), code)
}

// Refresh performs the refresh-token grant. Use IsInvalidGrant on the error to
// tell a revoked refresh token from a transient failure.
func (c *OsuClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

// Me fetches the profile of the user owning accessToken.
func (c *OsuClient) Me(ctx context.Context, accessToken string) (*OsuUser, error) {
	var user OsuUser
	if err := c.getJSON(ctx, "/me/osu", "Bearer "+accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByID fetches a public profile using the application's own
// client-credentials token.
func (c *OsuClient) UserByID(ctx context.Context, userID string) (*OsuUser, error) {
	c.appTokensOnce.Do(func() {
		c.appTokens = oauth2.ReuseTokenSource(nil, c.app.TokenSource(c.withClient(context.Background())))
	})
	tok, err := c.appTokens.Token()
	if err != nil {
		return nil, fmt.Errorf("client credentials: %w", err)
	}

	var user OsuUser
	if err := c.getJSON(ctx, "/users/"+userID+"/osu", "Bearer "+tok.AccessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *OsuClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *OsuClient) getJSON(ctx context.Context, path, authorization string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
