package tokens

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues both token kinds. Access tokens are RS256 so any service
// holding the published key set can verify them; refresh tokens are HS256
// and only ever verified here.
type Signer struct {
	privateKey    *rsa.PrivateKey
	keyID         string
	refreshSecret []byte
	now           func() time.Time

	accessParser  *jwt.Parser
	refreshParser *jwt.Parser
}

type Option func(*Signer)

// WithClock overrides time.Now for issued-at and expiry stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// NewSigner builds a signer. An empty keyID is replaced by the key thumbprint.
func NewSigner(privateKey *rsa.PrivateKey, keyID string, refreshSecret []byte, opts ...Option) (*Signer, error) {
	if privateKey == nil {
		return nil, errors.New("tokens: private key is required")
	}
	if len(refreshSecret) == 0 {
		return nil, errors.New("tokens: refresh secret is required")
	}
	if keyID == "" {
		keyID = Thumbprint(&privateKey.PublicKey)
	}
	s := &Signer{
		privateKey:    privateKey,
		keyID:         keyID,
		refreshSecret: refreshSecret,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.accessParser = newParser(jwt.SigningMethodRS256.Alg(), s.now)
	s.refreshParser = newParser(jwt.SigningMethodHS256.Alg(), s.now)
	return s, nil
}

func newParser(alg string, now func() time.Time) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	)
}

func (s *Signer) KeyID() string { return s.keyID }

func (s *Signer) IssueAccessToken(subject uint, role string) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatID(subject),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.keyID
	signed, err := tok.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken binds the token to a ledger row through its jti.
func (s *Signer) IssueRefreshToken(subject uint, role string, recordID uint) (string, error) {
	if recordID == 0 {
		return "", errors.New("sign refresh token: record id is required")
	}
	now := s.now()
	claims := RefreshClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatID(subject),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
			ID:        formatID(recordID),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// RefreshExpiry is the expiry a refresh token issued now would carry. The
// ledger row is written with it before the token is signed.
func (s *Signer) RefreshExpiry() time.Time {
	return s.now().Add(RefreshTTL)
}

func (s *Signer) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := s.accessParser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return &s.privateKey.PublicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) VerifyRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := s.refreshParser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.refreshSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	if _, err := claims.RecordID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) PublicJWKS() JWKS {
	return JWKS{Keys: []JWK{NewJWK(&s.privateKey.PublicKey, s.keyID)}}
}
