// Package auth validates the signed bearer tokens issued to engine clients.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/aeonforge/generation-engine/config"
	"github.com/aeonforge/generation-engine/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim checks
	ErrInvalidToken = errors.New("invalid token")
)

// tokenClaims is the raw claim set carried by engine tokens
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Validator verifies HS256 tokens against the shared signing secret
type Validator struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewValidator creates a token validator from auth configuration
func NewValidator(cfg config.AuthConfig, logger *zap.Logger) *Validator {
	return &Validator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		logger: logger,
	}
}

// ValidateToken parses and verifies a token, returning its claims
func (v *Validator) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		v.logger.Warn("token issuer mismatch",
			zap.String("issuer", claims.Issuer))
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := &middleware.Claims{
		Sub:   claims.Subject,
		Email: claims.Email,
	}
	if claims.Issuer != "" {
		out.Iss = claims.Issuer
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out.Iat = claims.IssuedAt.Unix()
	}
	return out, nil
}
