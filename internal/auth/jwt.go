// Package auth issues and verifies the signed identity assertions handed out
// after a successful face match.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MethodFace marks an assertion issued after a face match.
	MethodFace = "face"
	issuer     = "facegate"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSecret is returned when the signer has no key.
	ErrNoSecret = errors.New("assertion secret is not configured")
)

// Claims is the payload of an identity assertion.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64   `json:"uid"`
	Name     string  `json:"name"`
	Method   string  `json:"method"`
	Distance float64 `json:"distance"`
}

// Signer issues and verifies HS256 assertions.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. An empty secret generates a random one, which
// makes assertions valid only for the lifetime of the process.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate assertion secret: %w", err)
		}
		key = []byte(hex.EncodeToString(b))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("assertion ttl must be positive, got %v", ttl)
	}
	return &Signer{secret: key, ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued assertions stay valid.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs an assertion that userID was identified by face at distance.
func (s *Signer) Issue(userID int64, name string, distance float64) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := s.now()
	expires := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:   userID,
		Name:     name,
		Method:   MethodFace,
		Distance: distance,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign assertion: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and returns its claims.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
