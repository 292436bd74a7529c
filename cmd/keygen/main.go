// Command keygen creates an RSA signing key for the auth service and prints
// the JWKS document that publishes its public half.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

func main() {
	bits := flag.Int("bits", 2048, "RSA key size")
	kid := flag.String("kid", "", "key id (defaults to the JWK thumbprint)")
	out := flag.String("out", "", "write the private key PEM to this file instead of stdout")
	env := flag.Bool("env", false, "print the key as a single PRIVATE_KEY= line with escaped newlines")
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		log.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	if *kid == "" {
		*kid = tokens.Thumbprint(&key.PublicKey)
	}

	switch {
	case *out != "":
		if err := os.WriteFile(*out, keyPEM, 0o600); err != nil {
			log.Fatalf("write key: %v", err)
		}
	case *env:
		fmt.Printf("PRIVATE_KEY=%s\nJWT_KEY_ID=%s\n", strings.ReplaceAll(string(keyPEM), "\n", `\n`), *kid)
	default:
		os.Stdout.Write(keyPEM)
	}

	set := tokens.JWKS{Keys: []tokens.JWK{tokens.NewJWK(&key.PublicKey, *kid)}}
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		log.Fatalf("encode jwks: %v", err)
	}
}
