package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token that failed verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is what the external identity provider asserts about a caller
// after authentication. The backend never performs the handshake itself;
// it only verifies the signed assertion.
type Identity struct {
	DisplayName string
	Email       string
}

// Claims is the JWT claim set shared with the identity provider.
type Claims struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager verifies identity JWTs minted with a shared secret, and can
// mint them itself for tests and tooling.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed identity token.
func (t *TokenManager) Generate(identity Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token string and returns the asserted
// identity.
func (t *TokenManager) Verify(tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{DisplayName: claims.DisplayName, Email: claims.Email}, nil
}
