package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer     = "auth-service"
	AccessTTL  = time.Hour
	RefreshTTL = 365 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uint, error) {
	return parseID(c.Subject, "sub")
}

func (c *RefreshClaims) UserID() (uint, error) {
	return parseID(c.Subject, "sub")
}

// RecordID is the ledger row id carried in the jti claim.
func (c *RefreshClaims) RecordID() (uint, error) {
	return parseID(c.ID, "jti")
}

func parseID(v, claim string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad %s claim %q", ErrInvalidToken, claim, v)
	}
	return uint(n), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
