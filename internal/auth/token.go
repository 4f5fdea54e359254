package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens. Access and refresh tokens
// use different keys, so one kind never verifies as the other.
type TokenService struct {
	keys map[TokenKind][]byte
	ttls map[TokenKind]time.Duration
	now  func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	refresh := strings.TrimSpace(cfg.RefreshSecret)

	if access == "" || refresh == "" {
		return nil, errors.New("token secrets are required")
	}
	if access == refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return &TokenService{
		keys: map[TokenKind][]byte{
			AccessToken:  []byte(access),
			RefreshToken: []byte(refresh),
		},
		ttls: map[TokenKind]time.Duration{
			AccessToken:  cfg.AccessTTL,
			RefreshToken: cfg.RefreshTTL,
		},
		now: time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *TokenService) IssueAccess(userID string) (Token, error) {
	return s.issue(userID, AccessToken)
}

func (s *TokenService) IssueRefresh(userID string) (Token, error) {
	return s.issue(userID, RefreshToken)
}

func (s *TokenService) issue(userID string, kind TokenKind) (Token, error) {
	if strings.TrimSpace(userID) == "" {
		return Token{}, errors.New("token subject is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Token{}, fmt.Errorf("generate token id: %w", err)
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttls[kind])

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys[kind])
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return Token{Value: signed, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, algorithm and expiry for the given kind. Errors
// match ErrTokenMalformed, ErrTokenExpired or ErrTokenSignatureInvalid.
func (s *TokenService) Verify(raw string, kind TokenKind) (*Claims, error) {
	key, ok := s.keys[kind]
	if !ok {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: token kind %q", ErrTokenSignatureInvalid, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}
