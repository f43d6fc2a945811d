package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// Outcome classifies how request authentication ended.
type Outcome string

const (
	OutcomeNoCredential     Outcome = "no_credential"
	OutcomeAuthenticated    Outcome = "authenticated"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeExpiredOrRevoked Outcome = "expired_or_revoked"
	OutcomeInvalid          Outcome = "invalid"
)

// RevocationChecker reports whether a token string has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Result is what Authenticate produced. Identity is non-nil only for
// OutcomeAuthenticated.
type Result struct {
	Outcome  Outcome
	Kind     CredentialKind
	Identity *domain.Identity
	Reason   error
}

// RequestAuthenticator turns a bearer header into an identity.
type RequestAuthenticator struct {
	codec         *TokenCodec
	revocations   RevocationChecker
	legacyEnabled bool
	logger        *zap.Logger
}

// NewRequestAuthenticator wires the authenticator.
func NewRequestAuthenticator(codec *TokenCodec, revocations RevocationChecker, legacyEnabled bool, logger *zap.Logger) *RequestAuthenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestAuthenticator{codec: codec, revocations: revocations, legacyEnabled: legacyEnabled, logger: logger}
}

// Authenticate never fails: every problem collapses into an unauthenticated Result.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, authorizationHeader string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("authenticator panic", zap.Any("panic", r))
			res = Result{Outcome: OutcomeNoCredential, Reason: fmt.Errorf("panic: %v", r)}
		}
	}()

	cred := ClassifyCredential(BearerToken(authorizationHeader), a.legacyEnabled)
	if cred.Kind == CredentialNone {
		return Result{Outcome: OutcomeNoCredential}
	}

	// The revocation lookup uses the same string that is validated below.
	revoked, err := a.revocations.IsRevoked(ctx, cred.Raw)
	if err != nil {
		return Result{Outcome: OutcomeInvalid, Kind: cred.Kind, Reason: fmt.Errorf("revocation lookup: %w", err)}
	}
	if revoked {
		return Result{Outcome: OutcomeExpiredOrRevoked, Kind: cred.Kind}
	}

	switch cred.Kind {
	case CredentialLegacy:
		if cred.LegacyErr != nil {
			return Result{Outcome: OutcomeMalformed, Kind: cred.Kind, Reason: cred.LegacyErr}
		}
		identity := cred.Legacy.Identity()
		return Result{Outcome: OutcomeAuthenticated, Kind: cred.Kind, Identity: &identity}
	default:
		return a.authenticateSigned(cred)
	}
}

func (a *RequestAuthenticator) authenticateSigned(cred Credential) Result {
	v := a.codec.Validate(cred.Raw)
	switch v.Status {
	case TokenValid:
		identity := domain.Identity{
			SubjectID:  v.SubjectID,
			Role:       v.Role,
			PharmacyID: v.PharmacyID,
			Scheme:     domain.SchemeSigned,
		}
		return Result{Outcome: OutcomeAuthenticated, Kind: cred.Kind, Identity: &identity}
	case TokenMalformed:
		return Result{Outcome: OutcomeMalformed, Kind: cred.Kind, Reason: v.Reason}
	case TokenExpired:
		return Result{Outcome: OutcomeExpiredOrRevoked, Kind: cred.Kind, Reason: v.Reason}
	default:
		return Result{Outcome: OutcomeInvalid, Kind: cred.Kind, Reason: v.Reason}
	}
}
