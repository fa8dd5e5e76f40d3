// jwtgen mints RS256 caller tokens for the custody ledger API. Without a
// key pair it generates one and writes the PEM files; the public key goes
// into the service's auth.jwt_public_key setting.
//
// Usage:
//
//	jwtgen -generate -key ledger.pem -pub ledger.pub.pem
//	jwtgen -key ledger.pem -subject 0xCaller... -ttl 24h
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

var (
	generate = flag.Bool("generate", false, "Generate a new RSA key pair")
	keyFile  = flag.String("key", "ledger.pem", "Private key PEM file")
	pubFile  = flag.String("pub", "ledger.pub.pem", "Public key PEM file (written with -generate)")
	subject  = flag.String("subject", "", "Caller address to put in the token subject")
	ttl      = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()

	if *generate {
		if err := generateKeyPair(*keyFile, *pubFile); err != nil {
			fmt.Fprintf(os.Stderr, "generate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s and %s\n", *keyFile, *pubFile)
		return
	}

	if !common.IsHexAddress(*subject) {
		fmt.Fprintf(os.Stderr, "-subject must be a hex address, got %q\n", *subject)
		os.Exit(1)
	}

	token, err := signToken(*keyFile, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func generateKeyPair(keyPath, pubPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return err
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})
	return os.WriteFile(pubPath, pubPEM, 0644)
}

func signToken(keyPath, caller string, lifetime time.Duration) (string, error) {
	keyPEM, err := os.ReadFile(keyPath) //nolint:gosec,G304
	if err != nil {
		return "", err
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return "", fmt.Errorf("no PEM block in %s", keyPath)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   common.HexToAddress(caller).Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}
