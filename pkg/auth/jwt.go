package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("token carries an unknown role")
	ErrWeakSecret   = errors.New("signing secret is empty or too short")
)

// MinSecretLength is the shortest HS256 key accepted for signing or
// verifying tokens.
const MinSecretLength = 32

// Claims mirrors what the identity service puts in its access tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

// NewVerifier accepts any secret so wiring never panics, but a verifier
// built on a weak secret rejects every token.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// CheckSecret reports whether secret is usable as an HS256 key.
func CheckSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%w: need at least %d bytes, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}
	return nil
}

// Verify parses an HS256 token and resolves it into a Principal.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	if err := CheckSecret(string(v.secret)); err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Principal{}, ErrInvalidRole
	}

	return NewPrincipal(claims.Subject, role), nil
}

// Sign issues a token for p. Production tokens come from the identity
// service; this exists for local tooling and tests.
func (v *Verifier) Sign(p Principal, ttl time.Duration) (string, error) {
	if err := CheckSecret(string(v.secret)); err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
