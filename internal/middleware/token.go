package middleware

import (
	"errors"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "petchat"

// Claims is the identity the platform puts in access tokens. The subject is the user id.
type Claims struct {
	Role      string `json:"role"`
	ShelterID string `json:"shelter_id,omitempty"`
	jwt.RegisteredClaims
}

// Viewer converts verified claims into the messaging viewer.
func (c *Claims) Viewer() chat.Viewer {
	return chat.Viewer{UserID: c.Subject, Role: chat.Role(c.Role), ShelterID: c.ShelterID}
}

// SignViewerToken issues an HS256 token for v. Used by tooling and tests; the web
// platform issues production tokens.
func SignViewerToken(secret string, v chat.Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:      string(v.Role),
		ShelterID: v.ShelterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseViewerToken verifies signature and expiry and returns the viewer it identifies.
func ParseViewerToken(secret, tokenString string) (chat.Viewer, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return chat.Viewer{}, err
	}
	if !token.Valid {
		return chat.Viewer{}, errors.New("invalid token")
	}

	v := claims.Viewer()
	if err := v.Validate(); err != nil {
		return chat.Viewer{}, err
	}
	return v, nil
}
