package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/config"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// TokenStatus is the outcome of validating a signed token.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenMalformed
	TokenExpired
	TokenInvalid
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMalformed:
		return "malformed"
	case TokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// TokenCodec issues and validates HS256 access tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
	parser *jwt.Parser
}

// NewTokenCodec builds a codec. A nil clock means wall time.
func NewTokenCodec(secret string, ttl time.Duration, issuer string, clk clock.Clock) (*TokenCodec, error) {
	if len(secret) < config.MinSecretBytes {
		return nil, config.ErrWeakSecret
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl must not be negative: %s", ttl)
	}
	if clk == nil {
		clk = clock.New()
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clk.Now),
		jwt.WithJSONNumber(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		clock:  clk,
		parser: jwt.NewParser(opts...),
	}, nil
}

// TokenClaims describes the JWT payload.
type TokenClaims struct {
	// UID is written as a number but older issuers sent strings.
	UID        any    `json:"uid,omitempty"`
	Role       string `json:"role,omitempty"`
	PharmacyID *int64 `json:"pharmacy_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueOption customizes an issued token.
type IssueOption func(*TokenClaims)

// WithPharmacyID embeds the pharmacy the subject acts for.
func WithPharmacyID(id int64) IssueOption {
	return func(c *TokenClaims) { c.PharmacyID = &id }
}

// Issue signs a token for the subject.
func (tc *TokenCodec) Issue(subjectID int64, role domain.Role, opts ...IssueOption) (string, time.Time, error) {
	now := tc.clock.Now()
	expiresAt := now.Add(tc.ttl)
	claims := &TokenClaims{
		UID:  subjectID,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tc.issuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	for _, opt := range opts {
		opt(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidatedToken is the decoded result of Validate. Fields other than Status
// are only meaningful when Status is TokenValid.
type ValidatedToken struct {
	Status     TokenStatus
	SubjectID  int64
	Role       domain.Role
	PharmacyID *int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Reason     error
}

// Valid reports whether the token passed every check.
func (v ValidatedToken) Valid() bool {
	return v.Status == TokenValid
}

// Validate verifies signature, issuer and expiry. It never returns an error;
// failures are reported through Status.
func (tc *TokenCodec) Validate(tokenStr string) (result ValidatedToken) {
	defer func() {
		if r := recover(); r != nil {
			result = ValidatedToken{Status: TokenMalformed, Reason: fmt.Errorf("decode panic: %v", r)}
		}
	}()

	claims := &TokenClaims{}
	_, err := tc.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tc.secret, nil
	})
	if err != nil {
		return ValidatedToken{Status: classifyParseError(err), Reason: err}
	}

	subjectID, err := decodeSubjectID(claims.UID, claims.Subject)
	if err != nil {
		return ValidatedToken{Status: TokenMalformed, Reason: err}
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return ValidatedToken{Status: TokenInvalid, Reason: fmt.Errorf("unknown role %q", claims.Role)}
	}

	result = ValidatedToken{
		Status:     TokenValid,
		SubjectID:  subjectID,
		Role:       role,
		PharmacyID: claims.PharmacyID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result
}

// ExpiresAt returns the expiry of a currently valid token.
func (tc *TokenCodec) ExpiresAt(tokenStr string) (time.Time, bool) {
	v := tc.Validate(tokenStr)
	if !v.Valid() {
		return time.Time{}, false
	}
	return v.ExpiresAt, true
}

func classifyParseError(err error) TokenStatus {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return TokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return TokenMalformed
	default:
		return TokenInvalid
	}
}

var errNoSubject = errors.New("token carries no subject id")

func decodeSubjectID(uid any, subject string) (int64, error) {
	switch v := uid.(type) {
	case nil:
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, nil
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("uid %q is not an integer", v.String())
		}
		return int64(f), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("uid %v is not an integer", v)
		}
		return int64(v), nil
	case string:
		if v != "" {
			return strconv.ParseInt(v, 10, 64)
		}
	default:
		return 0, fmt.Errorf("uid has unsupported type %T", uid)
	}

	if subject == "" {
		return 0, errNoSubject
	}
	return strconv.ParseInt(subject, 10, 64)
}
