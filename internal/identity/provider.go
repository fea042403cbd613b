package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no identity provider credentials
	// are configured. Distinct from exchange failures so callers can
	// report it as a configuration fault.
	ErrNotConfigured = errors.New("oauth identity provider is not configured")
	// ErrExchangeFailed is returned when the provider rejects a code exchange
	ErrExchangeFailed = errors.New("authorization code exchange failed")
)

// TokenPair is the credential pair returned by a successful code exchange.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Identity is the provider's view of the authenticated user.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
	Provider  string
}

// Provider abstracts the external identity provider used by the auth
// callback. Implementations perform a single retry-less HTTP exchange.
type Provider interface {
	// AuthCodeURL builds the provider's authorization URL for the
	// login redirect.
	AuthCodeURL(state string) string
	// ExchangeCode trades an authorization code for provider tokens.
	ExchangeCode(ctx context.Context, code string) (*TokenPair, error)
	// UserInfo resolves the identity behind a provider access token.
	UserInfo(ctx context.Context, accessToken string) (*Identity, error)
}
