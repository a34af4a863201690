package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventry/auth-api/internal/models"
)

const testAppleClientID = "com.ventry.app"

var appleTestNow = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type appleKeyServer struct {
	srv     *httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32

	mu  sync.Mutex
	kid string
}

func (ks *appleKeyServer) currentKid() string {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.kid
}

func (ks *appleKeyServer) rotate(kid string) {
	ks.mu.Lock()
	ks.kid = kid
	ks.mu.Unlock()
}

func newAppleKeyServer(t *testing.T) *appleKeyServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := &appleKeyServer{key: key, kid: "test-kid"}
	ks.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": ks.currentKid(),
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(ks.srv.Close)
	return ks
}

func (ks *appleKeyServer) provider(t *testing.T) *AppleOAuthProvider {
	t.Helper()
	p := NewAppleOAuthProvider(AppleOAuthConfig{
		ClientID:             testAppleClientID,
		RedirectURL:          "https://api.ventry.app/api/auth/apple/callback",
		Timeout:              2 * time.Second,
		JWKSURL:              ks.srv.URL,
		Now:                  func() time.Time { return appleTestNow },
		JWKSRefreshRateLimit: time.Hour,
	})
	t.Cleanup(p.Close)
	return p
}

func (ks *appleKeyServer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.currentKid()
	signed, err := token.SignedString(ks.key)
	require.NoError(t, err)
	return signed
}

func validAppleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            appleIssuer,
		"aud":            testAppleClientID,
		"sub":            "001234.apple.subject",
		"email":          "ann@x.com",
		"email_verified": "true",
		"iat":            appleTestNow.Add(-time.Minute).Unix(),
		"exp":            appleTestNow.Add(10 * time.Minute).Unix(),
	}
}

func TestAppleOAuthProvider_AuthorizationURL(t *testing.T) {
	p := NewAppleOAuthProvider(AppleOAuthConfig{
		ClientID:    testAppleClientID,
		RedirectURL: "https://api.ventry.app/api/auth/apple/callback",
	})

	u, err := url.Parse(p.AuthorizationURL())
	require.NoError(t, err)
	assert.Equal(t, "appleid.apple.com", u.Host)

	q := u.Query()
	assert.Equal(t, testAppleClientID, q.Get("client_id"))
	assert.Equal(t, "code id_token", q.Get("response_type"))
	assert.Equal(t, "form_post", q.Get("response_mode"))
	assert.Equal(t, "name email", q.Get("scope"))
}

func TestAppleOAuthProvider_VerifyIDToken(t *testing.T) {
	ks := newAppleKeyServer(t)
	p := ks.provider(t)

	identity, err := p.VerifyIDToken(context.Background(),
		ks.sign(t, validAppleClaims()),
		`{"name":{"firstName":"Ann","lastName":"Lee"},"email":"ann@x.com"}`,
	)
	require.NoError(t, err)
	assert.Equal(t, &FederatedIdentity{
		Email:          "ann@x.com",
		Name:           "Ann Lee",
		Provider:       models.ProviderApple,
		ProviderUserID: "001234.apple.subject",
	}, identity)

	// Keys are cached between verifications.
	_, err = p.VerifyIDToken(context.Background(), ks.sign(t, validAppleClaims()), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ks.fetches.Load())
}

func TestAppleOAuthProvider_RefetchesOnUnknownKid(t *testing.T) {
	ks := newAppleKeyServer(t)
	p := ks.provider(t)

	_, err := p.VerifyIDToken(context.Background(), ks.sign(t, validAppleClaims()), "")
	require.NoError(t, err)

	ks.rotate("rotated-kid")
	_, err = p.VerifyIDToken(context.Background(), ks.sign(t, validAppleClaims()), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), ks.fetches.Load())
}

func TestAppleOAuthProvider_UnknownKidRefetchIsRateLimited(t *testing.T) {
	ks := newAppleKeyServer(t)
	p := ks.provider(t)

	_, err := p.VerifyIDToken(context.Background(), ks.sign(t, validAppleClaims()), "")
	require.NoError(t, err)
	require.Equal(t, int32(1), ks.fetches.Load())

	for i := 0; i < 10; i++ {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validAppleClaims())
		token.Header["kid"] = fmt.Sprintf("unknown-%d", i)
		signed, err := token.SignedString(ks.key)
		require.NoError(t, err)

		_, err = p.VerifyIDToken(context.Background(), signed, "")
		assert.ErrorIs(t, err, ErrUpstreamProvider)
	}

	// Only the first unknown kid may reach the key endpoint within the limit.
	assert.Equal(t, int32(2), ks.fetches.Load())

	// Known keys keep working.
	_, err = p.VerifyIDToken(context.Background(), ks.sign(t, validAppleClaims()), "")
	assert.NoError(t, err)
}

func TestAppleOAuthProvider_KeyEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := NewAppleOAuthProvider(AppleOAuthConfig{
		ClientID:             testAppleClientID,
		Timeout:              2 * time.Second,
		JWKSURL:              srv.URL,
		Now:                  func() time.Time { return appleTestNow },
		JWKSRefreshRateLimit: time.Hour,
	})
	t.Cleanup(p.Close)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validAppleClaims())
	token.Header["kid"] = "test-kid"
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	_, err = p.VerifyIDToken(context.Background(), signed, "")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
}

func TestAppleOAuthProvider_VerifyIDTokenRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{name: "wrong audience", mutate: func(c jwt.MapClaims) { c["aud"] = "com.someone.else" }},
		{name: "wrong issuer", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }},
		{name: "expired", mutate: func(c jwt.MapClaims) { c["exp"] = appleTestNow.Add(-time.Second).Unix() }},
		{name: "missing expiry", mutate: func(c jwt.MapClaims) { delete(c, "exp") }},
		{name: "missing email", mutate: func(c jwt.MapClaims) { delete(c, "email") }},
		{name: "unverified email", mutate: func(c jwt.MapClaims) { c["email_verified"] = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := newAppleKeyServer(t)
			claims := validAppleClaims()
			tt.mutate(claims)

			_, err := ks.provider(t).VerifyIDToken(context.Background(), ks.sign(t, claims), "")
			assert.ErrorIs(t, err, ErrUpstreamProvider)
		})
	}
}

func TestAppleOAuthProvider_RejectsForeignSignature(t *testing.T) {
	ks := newAppleKeyServer(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validAppleClaims())
	token.Header["kid"] = ks.currentKid()
	forged, err := token.SignedString(other)
	require.NoError(t, err)

	_, err = ks.provider(t).VerifyIDToken(context.Background(), forged, "")
	assert.ErrorIs(t, err, ErrUpstreamProvider)

	_, err = ks.provider(t).VerifyIDToken(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
}

func TestAppleDisplayName(t *testing.T) {
	assert.Equal(t, "", appleDisplayName(""))
	assert.Equal(t, "", appleDisplayName("{not json"))
	assert.Equal(t, "Ann", appleDisplayName(`{"name":{"firstName":"Ann"}}`))
}
