// Package auth mints and verifies the short-lived HS256 tokens that tie
// a websocket connection to a player identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime covers one evening of play.
const DefaultTokenLifetime = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Service signs and verifies player tokens with a shared secret.
type Service struct {
	secret   []byte
	lifetime time.Duration
}

// New builds a Service. lifetime <= 0 falls back to the default.
func New(secret string, lifetime time.Duration) *Service {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &Service{secret: []byte(secret), lifetime: lifetime}
}

// CreateToken signs a token whose subject is the player ID.
func (s *Service) CreateToken(playerID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the signature and expiry and returns the player
// ID carried in the subject.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
