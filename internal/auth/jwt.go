package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "streams"

// Claims is the payload inside every session token.
//
// A token names a user and one of that user's sessions. The signature
// only proves we issued it; whether the session is still open (not
// logged out, not invalidated by a password reset) is checked against
// the store on every request.
type Claims struct {
	UserID    int    `json:"u_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for one session of userID. A ttl of zero
// issues a token without an expiry; the session itself is then the only
// lifetime.
func GenerateToken(userID int, sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a token string and extracts the claims.
//
// It verifies the signature, the expiry (when present), the issuer and
// that the token is HMAC-signed.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("token has no session")
	}

	return claims, nil
}
