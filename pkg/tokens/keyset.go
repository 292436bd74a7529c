package tokens

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownKey   = errors.New("unknown signing key")
	ErrFetchLimited = errors.New("jwks fetch rate limited")
)

const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultFetchesPerMin   = 10
	fetchTimeout           = 5 * time.Second
)

// KeySet verifies access tokens against a remote JWKS document. Keys are
// cached by kid; fetches are coalesced and rate limited so a stream of
// tokens with a bogus kid cannot hammer the key endpoint.
type KeySet struct {
	uri          string
	client       *http.Client
	limiter      *rate.Limiter
	refreshEvery time.Duration
	logger       *slog.Logger
	now          func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time

	parser *jwt.Parser
}

type KeySetOption func(*KeySet)

func WithHTTPClient(c *http.Client) KeySetOption {
	return func(k *KeySet) { k.client = c }
}

func WithRefreshInterval(d time.Duration) KeySetOption {
	return func(k *KeySet) { k.refreshEvery = d }
}

// WithFetchLimit bounds on-demand fetches. Periodic refreshes from Run are
// not counted against it.
func WithFetchLimit(r rate.Limit, burst int) KeySetOption {
	return func(k *KeySet) { k.limiter = rate.NewLimiter(r, burst) }
}

func WithKeySetLogger(l *slog.Logger) KeySetOption {
	return func(k *KeySet) { k.logger = l }
}

func WithKeySetClock(now func() time.Time) KeySetOption {
	return func(k *KeySet) { k.now = now }
}

func NewKeySet(uri string, opts ...KeySetOption) *KeySet {
	k := &KeySet{
		uri:          uri,
		client:       &http.Client{Timeout: fetchTimeout},
		limiter:      rate.NewLimiter(rate.Every(time.Minute/DefaultFetchesPerMin), 1),
		refreshEvery: DefaultRefreshInterval,
		logger:       slog.Default(),
		now:          time.Now,
		keys:         map[string]*rsa.PublicKey{},
	}
	for _, opt := range opts {
		opt(k)
	}
	k.parser = newParser(jwt.SigningMethodRS256.Alg(), k.now)
	return k
}

// VerifyAccessToken resolves the token's kid and checks signature, issuer
// and expiry.
func (k *KeySet) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := k.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return k.Key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Key returns the public key for kid. A miss or a stale cache triggers one
// rate-limited refetch; on a failed refresh the cached keys stay in use.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, stale := k.lookup(kid)
	if key != nil && !stale {
		return key, nil
	}

	if err := k.fetch(ctx, true); err != nil {
		if key != nil {
			k.logger.Warn("jwks_refresh_failed", slog.String("error", err.Error()))
			return key, nil
		}
		if errors.Is(err, ErrFetchLimited) {
			// a fetch that finished just before this one may already hold kid
			if key, _ = k.lookup(kid); key != nil {
				return key, nil
			}
			return nil, fmt.Errorf("%w %q", ErrUnknownKey, kid)
		}
		return nil, err
	}

	if key, _ = k.lookup(kid); key == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKey, kid)
	}
	return key, nil
}

func (k *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	stale := k.refreshEvery > 0 && k.now().Sub(k.fetchedAt) > k.refreshEvery
	return k.keys[kid], stale
}

// Refresh fetches the key set unconditionally.
func (k *KeySet) Refresh(ctx context.Context) error {
	return k.fetch(ctx, false)
}

// Run refreshes the key set on the configured interval until ctx is done.
func (k *KeySet) Run(ctx context.Context) {
	if k.refreshEvery <= 0 {
		return
	}
	ticker := time.NewTicker(k.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := k.Refresh(ctx); err != nil {
				k.logger.Warn("jwks_refresh_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// fetch downloads the key set. Callers that arrive while a fetch is in
// flight share its result; the limiter is consulted once per actual fetch.
func (k *KeySet) fetch(ctx context.Context, limited bool) error {
	key := "refresh"
	if limited {
		key = "on-demand"
	}
	_, err, _ := k.group.Do(key, func() (any, error) {
		if limited && !k.limiter.Allow() {
			return nil, ErrFetchLimited
		}
		keys, err := k.download(ctx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.keys = keys
		k.fetchedAt = k.now()
		k.mu.Unlock()
		k.logger.Debug("jwks_refreshed", slog.Int("keys", len(keys)))
		return nil, nil
	})
	return err
}

func (k *KeySet) download(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	return set.RSAKeys(), nil
}
