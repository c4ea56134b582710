package gateway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "faultmaven-smoke"
	tokenLifetime = 15 * time.Minute
)

// TokenSource provides bearer tokens for gateway requests.
type TokenSource interface {
	Token() (string, error)
}

type userClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// HMACTokenSource signs HS256 tokens for a single user. A token is reused
// until it is about to expire.
type HMACTokenSource struct {
	secret []byte
	userID string
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewHMACTokenSource(secret, userID string) (*HMACTokenSource, error) {
	if secret == "" {
		return nil, errors.New("auth secret is empty")
	}
	if userID == "" {
		return nil, errors.New("user id is empty")
	}
	return &HMACTokenSource{
		secret: []byte(secret),
		userID: userID,
		now:    time.Now,
	}, nil
}

func (s *HMACTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(time.Minute).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(tokenLifetime)
	claims := userClaims{
		UserID: s.userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   s.userID,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}
