package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const defaultTTL = 72 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

func secret() ([]byte, error) {
	s := strings.TrimSpace(env.GetEnv("AUTH_JWT_SECRET", ""))
	if s == "" {
		return nil, errors.New("AUTH_JWT_SECRET is not configured")
	}
	return []byte(s), nil
}

// Mint issues an HS256 bearer token whose subject is the local user id.
func Mint(userID uint) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(defaultTTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Verify parses a bearer token and returns the user id it identifies.
// Malformed tokens, wrong signatures and expired tokens all report
// ErrInvalidToken; the distinction is not interesting to callers.
func Verify(tokenString string) (uint, error) {
	key, err := secret()
	if err != nil {
		return 0, err
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}
