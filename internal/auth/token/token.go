// Package token mints and verifies HYVVE API access tokens.
//
// Access tokens are HS256 JWTs carrying the user identity. Workspace
// membership is not embedded in the token: the API middleware resolves it
// per request so role changes and removals take effect immediately.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

const defaultTTL = 12 * time.Hour

// Config defines how access tokens are minted and verified.
type Config struct {
	Issuer string
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Claims captures validated access token claims.
type Claims struct {
	UserID    string
	JWTID     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// accessClaims is the internal claims type used for JWT parsing.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Mint issues a signed access token for a user.
func Mint(userID string, cfg Config) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if len(cfg.Secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	jwtID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := cfg.Now().UTC()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			ID:        jwtID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token.
func Verify(tokenString string, cfg Config) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthInvalidToken, "access token is required")
	}
	if len(cfg.Secret) == 0 {
		return Claims{}, errors.New("token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var parsed accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if cfg.Issuer != "" && parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeAuthInvalidToken, "access token issuer mismatch")
	}
	if strings.TrimSpace(parsed.UserID) == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthInvalidToken, "access token user is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthInvalidToken, "access token exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthInvalidToken, "access token is expired")
	}

	claims := Claims{
		UserID:    parsed.UserID,
		JWTID:     parsed.ID,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeAuthInvalidToken, "access token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthInvalidToken, "access token alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthInvalidToken, "access token is invalid")
}
