// Package federation verifies identity tokens issued by external providers.
package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// ErrInvalidCredential is returned for any identity token that must not be trusted.
var ErrInvalidCredential = errors.New("invalid federated credential")

// GoogleIssuers are the issuer values Google puts in ID tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

const clockSkew = 30 * time.Second

// GoogleVerifier checks Google ID tokens against a fixed audience list.
type GoogleVerifier struct {
	keys      KeyLookup
	audiences map[string]struct{}
	issuers   map[string]struct{}
	timeout   time.Duration
	parser    *jwt.Parser
}

// NewGoogleVerifier builds a verifier. audiences is every accepted OAuth client id.
func NewGoogleVerifier(keys KeyLookup, audiences []string, timeout time.Duration, clk clock.Clock) *GoogleVerifier {
	if clk == nil {
		clk = clock.New()
	}
	v := &GoogleVerifier{
		keys:      keys,
		audiences: toSet(audiences),
		issuers:   toSet(GoogleIssuers),
		timeout:   timeout,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
			jwt.WithTimeFunc(clk.Now),
		),
	}
	return v
}

type googleClaims struct {
	Email         string       `json:"email"`
	EmailVerified flexibleBool `json:"email_verified"`
	Name          string       `json:"name"`
	jwt.RegisteredClaims
}

// Verify validates idToken and returns the caller's profile. Every failure
// wraps ErrInvalidCredential.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (domain.ExternalProfile, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	claims := &googleClaims{}
	_, err := v.parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if _, ok := v.issuers[claims.Issuer]; !ok {
		return domain.ExternalProfile{}, fmt.Errorf("%w: issuer %q not accepted", ErrInvalidCredential, claims.Issuer)
	}
	if !v.audienceAccepted(claims.Audience) {
		return domain.ExternalProfile{}, fmt.Errorf("%w: audience %v not accepted", ErrInvalidCredential, []string(claims.Audience))
	}
	if claims.Subject == "" {
		return domain.ExternalProfile{}, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	return domain.ExternalProfile{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
	}, nil
}

func (v *GoogleVerifier) audienceAccepted(aud jwt.ClaimStrings) bool {
	for _, a := range aud {
		if _, ok := v.audiences[a]; ok {
			return true
		}
	}
	return false
}

// flexibleBool accepts both JSON booleans and the string form some clients send.
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = flexibleBool(v)
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("email_verified: %w", err)
		}
		*b = flexibleBool(parsed)
	case nil:
		*b = false
	default:
		return fmt.Errorf("email_verified: unsupported type %T", raw)
	}
	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
