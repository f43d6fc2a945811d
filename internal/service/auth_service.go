package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/auth"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/events"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/federation"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/revocation"
	apperrors "github.com/bavindu122/PillPath-Backend-sub001/pkg/util/errorutil"
)

// IdentityVerifier checks a federated identity token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (domain.ExternalProfile, error)
}

// AccountLinker maps a verified external profile to a local customer.
type AccountLinker interface {
	ResolveFederated(ctx context.Context, provider string, profile domain.ExternalProfile) (*domain.Customer, error)
}

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Customer  *domain.Customer
}

// SessionService coordinates federated login and logout.
type SessionService struct {
	codec       *auth.TokenCodec
	revocations revocation.Store
	verifier    IdentityVerifier
	linker      AccountLinker
	dispatcher  events.Dispatcher
	clock       clock.Clock
	logger      *zap.Logger
}

// SessionDependencies encapsulates collaborators for the session service.
// Verifier and Linker may be nil when federated login is not configured.
type SessionDependencies struct {
	Codec       *auth.TokenCodec
	Revocations revocation.Store
	Verifier    IdentityVerifier
	Linker      AccountLinker
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.NewInMemoryDispatcher(deps.Logger)
	}
	return &SessionService{
		codec:       deps.Codec,
		revocations: deps.Revocations,
		verifier:    deps.Verifier,
		linker:      deps.Linker,
		dispatcher:  deps.Dispatcher,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// LoginWithGoogle verifies a Google ID token, links it to a customer and
// issues an access token for that customer.
func (s *SessionService) LoginWithGoogle(ctx context.Context, provider, idToken string) (*IssuedToken, error) {
	if provider != domain.OAuthProviderGoogle {
		return nil, apperrors.NewValidationError("unsupported provider", map[string]any{"provider": provider})
	}
	if idToken == "" {
		return nil, apperrors.NewValidationError("idToken required", nil)
	}
	if s.verifier == nil || s.linker == nil {
		return nil, apperrors.NewServiceUnavailable("federated login is not configured")
	}

	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, federation.ErrInvalidCredential) {
			s.logger.Info("google token rejected", zap.Error(err))
			return nil, apperrors.NewInvalidFederatedCredential(err)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if profile.Email == "" {
		return nil, apperrors.NewUnauthorized("google account has no email")
	}
	if !profile.EmailVerified {
		return nil, apperrors.NewUnauthorized("google email not verified")
	}

	customer, err := s.linker.ResolveFederated(ctx, provider, profile)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("link google account: %w", err))
	}

	token, exp, err := s.codec.Issue(customer.ID, domain.RoleCustomer)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &IssuedToken{Token: token, ExpiresAt: exp, Customer: customer}, nil
}

// Logout revokes the exact token presented by the caller until it would have
// expired. Tokens without a known expiry are revoked for the default window.
func (s *SessionService) Logout(ctx context.Context, token string, identity domain.Identity) error {
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	expiresAt, ok := s.codec.ExpiresAt(token)
	if !ok || expiresAt.IsZero() {
		expiresAt = s.clock.Now().Add(revocation.DefaultTTL)
	}
	if err := s.revocations.Revoke(ctx, token, expiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}

	userID := identity.SubjectID
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventTokenRevoked, "",
		events.Actor{Role: string(identity.Role), UserID: &userID},
		events.TokenRevokedPayload{Scheme: string(identity.Scheme), ExpiresAt: expiresAt}))
	return nil
}
