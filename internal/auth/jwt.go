// Package auth verifies and issues the HS256 tokens clients present with setup
// and the ingress API accepts as bearer credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chatverse"

// ErrMissingUser rejects an empty credential or a token without a userId claim.
var ErrMissingUser = errors.New("token carries no user id")

// Claims is the payload of the tokens clients present with setup.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the credential and returns the user it was issued to.
// A leading "Bearer " is accepted.
func (v *Verifier) Verify(_ context.Context, credential string) (presence.UserID, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if raw == "" {
		return "", ErrMissingUser
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	if claims.UserID == "" {
		return "", ErrMissingUser
	}
	return presence.UserID(claims.UserID), nil
}

// Issue signs a token for user. A zero ttl yields a token without expiry.
func (v *Verifier) Issue(user presence.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: string(user),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
