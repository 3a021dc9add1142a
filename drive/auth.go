// Package drive wraps Google Drive access behind a small client used by the
// ingestion pipeline and the agent's Drive search tool.
//
// Information Hiding: callers never see oauth2 token plumbing or the
// generated Drive API types. They ask the Connector for a per-user Client
// and work with FileInfo and ChangeList values.
package drive

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	gdrive "google.golang.org/api/drive/v3"
)

// Scope grants read-only access to the user's Drive files.
const Scope = "https://www.googleapis.com/auth/drive.readonly"

// refreshMargin is how long before expiry a stored access token is
// considered stale and refreshed proactively.
const refreshMargin = 5 * time.Minute

// Tokens holds the OAuth credentials stored per user.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenStore persists per-user Drive credentials.
type TokenStore interface {
	SaveDriveTokens(ctx context.Context, userID string, tokens Tokens) error
	DriveTokens(ctx context.Context, userID string) (*Tokens, error)
}

// Connector turns stored user credentials into authenticated Drive clients.
type Connector struct {
	oauth *oauth2.Config
	store TokenStore
	now   func() time.Time
}

// NewConnector creates a connector for the given OAuth application.
func NewConnector(clientID, clientSecret, redirectURL string, store TokenStore) *Connector {
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{Scope},
			Endpoint:     google.Endpoint,
		},
		store: store,
		now:   time.Now,
	}
}

// AuthURL returns the consent page URL. Offline access and forced consent
// are requested so Google always issues a refresh token.
func (c *Connector) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens and persists them.
func (c *Connector) Exchange(ctx context.Context, userID, code string) (Tokens, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	tokens := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := c.store.SaveDriveTokens(ctx, userID, tokens); err != nil {
		return Tokens{}, fmt.Errorf("saving drive tokens: %w", err)
	}
	return tokens, nil
}

// Connected reports whether the user has stored Drive credentials.
func (c *Connector) Connected(ctx context.Context, userID string) (bool, error) {
	tokens, err := c.store.DriveTokens(ctx, userID)
	if err != nil {
		return false, err
	}
	return tokens != nil, nil
}

// ClientFor returns an authenticated Drive client for the user, refreshing
// the access token when it is within refreshMargin of expiry. Refreshed
// tokens are written back to the store.
func (c *Connector) ClientFor(ctx context.Context, userID string) (*Client, error) {
	tokens, err := c.store.DriveTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading drive tokens: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("user %s has no google drive connection", userID)
	}

	if c.now().After(tokens.ExpiresAt.Add(-refreshMargin)) {
		refreshed, err := c.refresh(ctx, userID, *tokens)
		if err != nil {
			return nil, err
		}
		tokens = &refreshed
	}

	svc, err := gdrive.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens.AccessToken,
	})))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func (c *Connector) refresh(ctx context.Context, userID string, stale Tokens) (Tokens, error) {
	if stale.RefreshToken == "" {
		return Tokens{}, fmt.Errorf("access token expired and no refresh token stored for user %s", userID)
	}
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: stale.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return Tokens{}, fmt.Errorf("refreshing access token: %w", err)
	}
	fresh := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: stale.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if err := c.store.SaveDriveTokens(ctx, userID, fresh); err != nil {
		return Tokens{}, fmt.Errorf("saving refreshed tokens: %w", err)
	}
	return fresh, nil
}
