package tokens

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ParsePrivateKey accepts a PKCS#1 or PKCS#8 PEM block. Literal "\n"
// sequences are expanded so the key can live in a single env line.
func ParsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	pemStr = strings.ReplaceAll(strings.TrimSpace(pemStr), `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemStr))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Thumbprint computes the RFC 7638 JWK thumbprint of an RSA public key.
func Thumbprint(pub *rsa.PublicKey) string {
	canonical, _ := json.Marshal(struct {
		E   string `json:"e"`
		Kty string `json:"kty"`
		N   string `json:"n"`
	}{
		E:   b64(big.NewInt(int64(pub.E)).Bytes()),
		Kty: "RSA",
		N:   b64(pub.N.Bytes()),
	})
	sum := sha256.Sum256(canonical)
	return b64(sum[:])
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
