package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	authTypeKey  contextKey = "auth_type"
	callerKey    contextKey = "auth_caller"
	requestIDKey contextKey = "request_id"
	callerHeader            = "X-Caller-Address"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success  bool
	AuthType string // "jwt" or "apikey"
	Caller   domain.Address
	Error    error
}

// Authenticate validates the Authorization header. JWT bearer tokens carry
// the caller address as their subject; API-key callers supply the address in
// the X-Caller-Address header instead.
func Authenticate(authHeader, callerHeaderValue string, cfg AuthConfig) AuthResult {
	result := AuthResult{Success: false}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	authType := strings.ToLower(parts[0])
	credentials := parts[1]

	switch authType {
	case "bearer":
		claims, err := validateJWT(credentials, cfg.JWTPublicKey)
		if err != nil {
			result.Error = err
			return result
		}
		caller := domain.Address(claims.Subject)
		if !caller.Valid() {
			result.Error = fmt.Errorf("token subject is not an address: %q", claims.Subject)
			return result
		}
		result.Success = true
		result.AuthType = "jwt"
		result.Caller = caller.Normalized()

	case "apikey":
		if err := validateAPIKey(credentials, cfg.APIKeys); err != nil {
			result.Error = err
			return result
		}
		caller := domain.Address(callerHeaderValue)
		if !caller.Valid() {
			result.Error = fmt.Errorf("missing or invalid %s header", callerHeader)
			return result
		}
		result.Success = true
		result.AuthType = "apikey"
		result.Caller = caller.Normalized()

	default:
		result.Error = fmt.Errorf("unsupported authorization type: %s", authType)
	}

	return result
}

// Auth returns a gin middleware that authenticates the request and resolves
// the caller address. Role authorization happens inside the ledger engine;
// this layer only establishes who is calling.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := Authenticate(c.GetHeader("Authorization"), c.GetHeader(callerHeader), cfg)

		if !result.Success {
			logger.Warn("Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
				},
			})
			return
		}

		c.Set(string(authTypeKey), result.AuthType)
		c.Set(string(callerKey), string(result.Caller))
		c.Next()
	}
}

// Caller returns the authenticated caller address set by Auth
func Caller(c *gin.Context) (domain.Address, bool) {
	caller := c.GetString(string(callerKey))
	if caller == "" {
		return "", false
	}
	return domain.Address(caller), true
}

// validateJWT validates a JWT token with RSA signature and returns claims
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	now := time.Now()
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return nil, errors.New("token has expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return nil, errors.New("token not yet valid")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return rsaKey, nil
}

// validateAPIKey validates an API key
func validateAPIKey(apiKey string, validKeys []string) error {
	for _, key := range validKeys {
		if key != "" && key == apiKey {
			return nil
		}
	}
	return errors.New("invalid API key")
}
