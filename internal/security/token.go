// Package security is the shared bearer-token verification used by both the
// session gateway and the HTTP surface: HS256 claims signed and verified
// through ParseWithClaims, with an explicit SigningMethodHMAC guard against
// algorithm confusion.
package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Divy1030/duelcore/internal/apperr"
)

// Claims is the access token payload duelcore issues and verifies.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access tokens with a single shared
// secret (ACCESS_TOKEN_SECRET).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService constructs a token service around secret with a one-day
// access token lifetime, matching the common HS256 convention.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: 24 * time.Hour}
}

// Issue signs a fresh access token for userID/username.
func (s *TokenService) Issue(userID, username string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates tokenString, rejecting anything not signed
// with HMAC (algorithm confusion guard) or expired.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	}
	return claims, nil
}

// ExtractBearer pulls the access token from the request: the accessToken
// cookie, falling back to the Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	if c, err := r.Cookie("accessToken"); err == nil && c.Value != "" {
		return c.Value, nil
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer "), nil
	}
	return "", fmt.Errorf("missing bearer token: %w", apperr.ErrUnauthorized)
}
