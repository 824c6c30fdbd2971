package roomtoken

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// Service mints and verifies HS256 room-invite tokens. A token lets a
// player join one specific private room before it expires.
type Service struct {
	secret string
	issuer string
	ttl    time.Duration
}

// DefaultTTL is how long a freshly minted invite stays valid.
const DefaultTTL = time.Hour

func NewService(secret, issuer string, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: secret, issuer: issuer, ttl: ttl}
}

// Mint issues an invite token binding a user to a room.
func (s *Service) Mint(userID, roomID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("room token service is nil")
	}
	if userID == "" {
		return "", fmt.Errorf("user is required")
	}
	if roomID == "" {
		return "", fmt.Errorf("room is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("room token config is incomplete")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"exp":  now.Add(s.ttl).Unix(),
		"iat":  now.Unix(),
		"room": roomID,
		"jti":  fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks an invite token's signature, issuer and expiry and returns
// the user and room it grants.
func (s *Service) Verify(tokenString string) (userID, roomID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse room token: %w", err)
	}
	if !token.Valid {
		return "", "", fmt.Errorf("room token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("room token claims have unexpected shape")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return "", "", fmt.Errorf("room token issuer mismatch")
	}
	userID, _ = claims["sub"].(string)
	roomID, _ = claims["room"].(string)
	if userID == "" || roomID == "" {
		return "", "", fmt.Errorf("room token missing sub or room claim")
	}
	return userID, roomID, nil
}
