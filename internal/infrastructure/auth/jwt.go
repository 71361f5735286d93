package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scopes granted to service tokens
const (
	ScopeQueueWrite   = "queue:write"
	ScopeQueueProcess = "queue:process"
	ScopeMappingAdmin = "mapping:admin"
	ScopeRead         = "read"
)

// AllScopes lists every scope a token can carry
var AllScopes = []string{ScopeQueueWrite, ScopeQueueProcess, ScopeMappingAdmin, ScopeRead}

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingClient     = errors.New("missing client in claims")
	ErrUnknownScope      = errors.New("unknown scope")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrInsufficientScope = errors.New("insufficient scope")
)

// Claims are the claims of a service token issued to a storefront or an operator tool
type Claims struct {
	jwt.RegisteredClaims
	Client string   `json:"client"`
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope checks if the claims grant scope
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// IssuedToken is a signed token with its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// JWTService issues and validates HS256 service tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.AuthConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.TokenExpiration,
		now:        time.Now,
	}
}

// Issue signs a token for client with the given scopes. A zero ttl uses the configured expiration.
func (s *JWTService) Issue(client string, scopes []string, ttl time.Duration) (*IssuedToken, error) {
	if client == "" {
		return nil, ErrMissingClient
	}
	for _, scope := range scopes {
		if !slices.Contains(AllScopes, scope) {
			return nil, ErrUnknownScope
		}
	}
	if ttl <= 0 {
		ttl = s.expiration
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   client,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Client: client,
		Scopes: scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     signed,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
		TokenType: "Bearer",
	}, nil
}

// Validate parses tokenString and checks signature, issuer, audience and lifetime
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Client == "" {
		return nil, ErrMissingClient
	}
	return claims, nil
}
