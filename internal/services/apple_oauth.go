package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ventry/auth-api/internal/models"
	"golang.org/x/oauth2"
)

const (
	appleIssuer         = "https://appleid.apple.com"
	defaultAppleAuthURL = "https://appleid.apple.com/auth/authorize"
	defaultAppleJWKSURL = "https://appleid.apple.com/auth/keys"

	appleJWKSRefreshInterval  = 24 * time.Hour
	defaultAppleJWKSRateLimit = 5 * time.Minute
)

type AppleOAuthConfig struct {
	ClientID    string
	RedirectURL string
	Timeout     time.Duration

	// Overridable for tests.
	AuthURL string
	JWKSURL string
	Now     func() time.Time
	// Minimum gap between key set refetches triggered by unknown kids.
	JWKSRefreshRateLimit time.Duration
}

// AppleOAuthProvider builds Sign in with Apple URLs and verifies the
// id_token Apple posts back against Apple's published keys.
type AppleOAuthProvider struct {
	oauth            *oauth2.Config
	jwksURL          string
	httpClient       *http.Client
	refreshRateLimit time.Duration
	now              func() time.Time

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

type appleIDClaims struct {
	jwt.RegisteredClaims
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
}

// appleUser is the optional "user" form field sent on the first sign in.
type appleUser struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
}

func NewAppleOAuthProvider(cfg AppleOAuthConfig) *AppleOAuthProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAppleAuthURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultAppleJWKSURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.JWKSRefreshRateLimit <= 0 {
		cfg.JWKSRefreshRateLimit = defaultAppleJWKSRateLimit
	}

	return &AppleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      []string{"name", "email"},
			Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthURL},
		},
		jwksURL:          cfg.JWKSURL,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		refreshRateLimit: cfg.JWKSRefreshRateLimit,
		now:              cfg.Now,
	}
}

// AuthorizationURL returns the Apple sign-in page URL. Apple posts the
// result back as a form.
func (p *AppleOAuthProvider) AuthorizationURL() string {
	return p.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("response_type", "code id_token"),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
	)
}

// VerifyIDToken checks the id_token signature, issuer, audience and expiry
// and returns the identity it asserts. userJSON is Apple's optional "user"
// form field and only contributes a display name.
func (p *AppleOAuthProvider) VerifyIDToken(_ context.Context, idToken, userJSON string) (*FederatedIdentity, error) {
	if idToken == "" {
		return nil, upstream(models.ProviderApple, errors.New("missing ID token from Apple"))
	}

	jwks, err := p.keySet()
	if err != nil {
		return nil, upstream(models.ProviderApple, err)
	}

	claims := &appleIDClaims{}
	_, err = jwt.ParseWithClaims(idToken, claims, jwks.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(p.oauth.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, upstream(models.ProviderApple, fmt.Errorf("invalid id_token: %w", err))
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, upstream(models.ProviderApple, errors.New("could not extract user info from Apple token"))
	}
	if !appleEmailVerified(claims.EmailVerified) {
		return nil, upstream(models.ProviderApple, errors.New("apple account email is not verified"))
	}

	return &FederatedIdentity{
		Email:          claims.Email,
		Name:           appleDisplayName(userJSON),
		Provider:       models.ProviderApple,
		ProviderUserID: claims.Subject,
	}, nil
}

// keySet returns Apple's key set, loading it on first use. keyfunc refreshes
// it in the background and refetches on an unknown kid, at most once per
// refresh rate limit.
func (p *AppleOAuthProvider) keySet() (*keyfunc.JWKS, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jwks != nil {
		return p.jwks, nil
	}

	jwks, err := keyfunc.Get(p.jwksURL, keyfunc.Options{
		Client:            p.httpClient,
		RefreshInterval:   appleJWKSRefreshInterval,
		RefreshRateLimit:  p.refreshRateLimit,
		RefreshTimeout:    p.httpClient.Timeout,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Warn("apple JWKS refresh failed", "error", err)
		},
		TolerateInitialJWKHTTPError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	p.jwks = jwks
	return jwks, nil
}

// Close stops the background key refresh.
func (p *AppleOAuthProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jwks != nil {
		p.jwks.EndBackground()
		p.jwks = nil
	}
}

// Apple sends email_verified as either a bool or the string "true".
func appleEmailVerified(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	default:
		return false
	}
}

func appleDisplayName(userJSON string) string {
	if userJSON == "" {
		return ""
	}
	var u appleUser
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return ""
	}
	return strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
}
