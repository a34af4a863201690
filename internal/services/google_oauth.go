package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ventry/auth-api/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	// Overridable for tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

type GoogleOAuthProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func NewGoogleOAuthProvider(cfg GoogleOAuthConfig) *GoogleOAuthProvider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &GoogleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     cfg.Endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// AuthorizationURL returns the Google consent page URL.
func (p *GoogleOAuthProvider) AuthorizationURL() string {
	return p.oauth.AuthCodeURL("", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the caller's Google profile.
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*FederatedIdentity, error) {
	if code == "" {
		return nil, upstream(models.ProviderGoogle, errors.New("missing authorization code"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, upstream(models.ProviderGoogle, fmt.Errorf("failed to exchange code: %w", describeOAuthError(err)))
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, upstream(models.ProviderGoogle, err)
	}

	return &FederatedIdentity{
		Email:          info.Email,
		Name:           info.Name,
		Provider:       models.ProviderGoogle,
		ProviderUserID: info.Sub,
	}, nil
}

func (p *GoogleOAuthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := p.oauth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info from google: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("user info is missing subject or email")
	}
	if !info.EmailVerified {
		return nil, errors.New("google account email is not verified")
	}
	return &info, nil
}

// describeOAuthError keeps the provider's error description and drops the
// raw response body.
func describeOAuthError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return errors.New(re.ErrorDescription)
		case re.ErrorCode != "":
			return errors.New(re.ErrorCode)
		case re.Response != nil:
			return fmt.Errorf("token endpoint returned status %d", re.Response.StatusCode)
		}
	}
	return err
}
