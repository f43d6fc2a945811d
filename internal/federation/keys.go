package federation

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxCachedKeys = 32
	// minRefreshInterval bounds how often an unknown kid may trigger a fetch.
	minRefreshInterval = 30 * time.Second
)

// KeyLookup resolves a signing key by its key id.
type KeyLookup interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// KeySource fetches a JWKS document and caches its RSA keys. An unknown kid
// triggers one refresh shared by every concurrent caller, at most once per
// minRefreshInterval.
type KeySource struct {
	url          string
	client       *http.Client
	fetchTimeout time.Duration
	cache        *expirable.LRU[string, *rsa.PublicKey]
	group        singleflight.Group
	clock        clock.Clock
	lastRefresh  atomic.Int64
	logger       *zap.Logger
}

// NewKeySource builds a key source for the given JWKS url.
func NewKeySource(url string, client *http.Client, ttl, fetchTimeout time.Duration, logger *zap.Logger) *KeySource {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeySource{
		url:          url,
		client:       client,
		fetchTimeout: fetchTimeout,
		cache:        expirable.NewLRU[string, *rsa.PublicKey](maxCachedKeys, nil, ttl),
		clock:        clock.New(),
		logger:       logger,
	}
}

// Key returns the cached key for kid, refreshing the key set on a miss.
func (s *KeySource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := s.cache.Get(kid); ok {
		return key, nil
	}
	if !s.refreshDue() {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		s.lastRefresh.Store(s.clock.Now().UnixNano())
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return nil, s.refresh(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	}

	if key, ok := s.cache.Get(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (s *KeySource) refreshDue() bool {
	last := s.lastRefresh.Load()
	return last == 0 || s.clock.Since(time.Unix(0, last)) >= minRefreshInterval
}

func (s *KeySource) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	loaded := 0
	for _, jwk := range set.Keys {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		pub, ok := jwk.Key.(*rsa.PublicKey)
		if !ok || jwk.KeyID == "" {
			continue
		}
		s.cache.Add(jwk.KeyID, pub)
		loaded++
	}
	s.logger.Debug("jwks refreshed", zap.String("url", s.url), zap.Int("keys", loaded))
	return nil
}
