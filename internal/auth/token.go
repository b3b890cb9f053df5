package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceSubject is the subject claim carried by tokens the engine mints for
// its own scheduled callbacks.
const ServiceSubject = "sla-engine"

// Claims defines the structured data we store in the JWT
type Claims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// TokenManager mints and validates the HMAC service tokens that authenticate
// scheduler callbacks and internal service-to-service calls.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// ServiceToken creates a new service JWT. The TTL must cover the longest
// interval between scheduling a deadline check and its fire time.
func (tm *TokenManager) ServiceToken() (string, error) {
	now := time.Now()
	claims := &Claims{
		Service: ServiceSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   ServiceSubject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
