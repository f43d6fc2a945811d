package federation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	webClient    = "web.apps.googleusercontent.com"
	mobileClient = "android.apps.googleusercontent.com"
)

type jwksFixture struct {
	key     *rsa.PrivateKey
	server  *httptest.Server
	fetches atomic.Int64
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &jwksFixture{key: key}
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &key.PublicKey, KeyID: "k1", Algorithm: string(jose.RS256), Use: "sig"},
	}}
	body, err := json.Marshal(set)
	require.NoError(t, err)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *jwksFixture) sign(t *testing.T, kid string, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func newVerifier(t *testing.T, f *jwksFixture) (*GoogleVerifier, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Unix(1_800_000_000, 0))
	keys := NewKeySource(f.server.URL, f.server.Client(), time.Hour, time.Second, nil)
	return NewGoogleVerifier(keys, []string{webClient, mobileClient}, 2*time.Second, clk), clk
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            mobileClient,
		"sub":            "10769150350006150715113082367",
		"email":          "jane@example.com",
		"email_verified": true,
		"name":           "Jane Doe",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	f := newJWKSFixture(t)
	v, clk := newVerifier(t, f)

	profile, err := v.Verify(context.Background(), f.sign(t, "k1", f.key, baseClaims(clk.Now())))
	require.NoError(t, err)
	assert.Equal(t, "10769150350006150715113082367", profile.Subject)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Jane Doe", profile.Name)
}

func TestVerifyAcceptsBothIssuersAndAudienceLists(t *testing.T) {
	f := newJWKSFixture(t)
	v, clk := newVerifier(t, f)

	claims := baseClaims(clk.Now())
	claims["iss"] = "accounts.google.com"
	claims["aud"] = []string{"someone-else", webClient}
	claims["email_verified"] = "true"

	profile, err := v.Verify(context.Background(), f.sign(t, "k1", f.key, claims))
	require.NoError(t, err)
	assert.True(t, profile.EmailVerified)
}

func TestVerifyCachesKeys(t *testing.T) {
	f := newJWKSFixture(t)
	v, clk := newVerifier(t, f)

	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), f.sign(t, "k1", f.key, baseClaims(clk.Now())))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), f.fetches.Load())
}

func TestVerifyRejects(t *testing.T) {
	f := newJWKSFixture(t)
	v, clk := newVerifier(t, f)
	now := clk.Now()
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hsToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(now)).SignedString([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	with := func(key string, value interface{}) jwt.MapClaims {
		c := baseClaims(now)
		if value == nil {
			delete(c, key)
		} else {
			c[key] = value
		}
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong audience", token: f.sign(t, "k1", f.key, with("aud", "attacker.apps.googleusercontent.com"))},
		{name: "wrong issuer", token: f.sign(t, "k1", f.key, with("iss", "https://evil.example.com"))},
		{name: "expired", token: f.sign(t, "k1", f.key, with("exp", now.Add(-time.Hour).Unix()))},
		{name: "missing exp", token: f.sign(t, "k1", f.key, with("exp", nil))},
		{name: "missing subject", token: f.sign(t, "k1", f.key, with("sub", nil))},
		{name: "bad signature", token: f.sign(t, "k1", otherKey, baseClaims(now))},
		{name: "unknown kid", token: f.sign(t, "k2", f.key, baseClaims(now))},
		{name: "hmac token", token: hsToken},
		{name: "garbage", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			require.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestVerifyHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &jwksFixture{key: key}

	keys := NewKeySource(slow.URL, slow.Client(), time.Hour, 5*time.Second, nil)
	v := NewGoogleVerifier(keys, []string{webClient}, 50*time.Millisecond, nil)

	start := time.Now()
	_, err = v.Verify(context.Background(), f.sign(t, "k1", key, baseClaims(time.Now())))
	require.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUnknownKidRefreshesAtMostOncePerInterval(t *testing.T) {
	f := newJWKSFixture(t)
	clk := clock.NewMock()
	clk.Set(time.Unix(1_800_000_000, 0))
	keys := NewKeySource(f.server.URL, f.server.Client(), time.Hour, time.Second, nil)
	keys.clock = clk
	v := NewGoogleVerifier(keys, []string{webClient, mobileClient}, 2*time.Second, clk)

	for i := 0; i < 50; i++ {
		_, err := v.Verify(context.Background(), f.sign(t, fmt.Sprintf("bogus-%d", i), f.key, baseClaims(clk.Now())))
		require.ErrorIs(t, err, ErrInvalidCredential)
	}
	assert.Equal(t, int64(1), f.fetches.Load())

	_, err := v.Verify(context.Background(), f.sign(t, "k1", f.key, baseClaims(clk.Now())))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.fetches.Load())

	clk.Add(minRefreshInterval)
	_, err = v.Verify(context.Background(), f.sign(t, "bogus-late", f.key, baseClaims(clk.Now())))
	require.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, int64(2), f.fetches.Load())
}
