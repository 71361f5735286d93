package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/connector/internal/infrastructure/auth"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// DefaultPublicPaths bypass authentication. An entry ending in "/" matches
// every path below it.
var DefaultPublicPaths = []string{"/health", "/api/v1/health", "/api/v1/system/ping", "/metrics", "/metrics/"}

var errMissingBearer = errors.New("missing bearer token")

type authenticator struct {
	tokens      *auth.JWTService
	revocations auth.RevocationList
	public      []string
	log         *zap.Logger
}

type AuthOption func(*authenticator)

// WithRevocations rejects tokens whose ID is on the list. A failing list
// lookup lets the token through.
func WithRevocations(list auth.RevocationList) AuthOption {
	return func(a *authenticator) { a.revocations = list }
}

func WithAuthLogger(log *zap.Logger) AuthOption {
	return func(a *authenticator) { a.log = log }
}

// WithPublicPaths replaces DefaultPublicPaths
func WithPublicPaths(paths ...string) AuthOption {
	return func(a *authenticator) { a.public = paths }
}

// JWTAuthMiddleware requires a valid bearer token issued by tokens and
// stores its claims on the gin context. The client name also becomes the
// caller of the request logger.
func JWTAuthMiddleware(tokens *auth.JWTService, opts ...AuthOption) gin.HandlerFunc {
	a := &authenticator{tokens: tokens, public: DefaultPublicPaths, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a.handle
}

func (a *authenticator) handle(c *gin.Context) {
	if a.isPublic(c.Request.URL.Path) {
		c.Next()
		return
	}

	claims, err := a.authenticate(c)
	if err != nil {
		a.log.Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		abortUnauthorized(c, err)
		return
	}

	c.Set(JWTClaimsKey, claims)
	c.Set(logger.GinCallerKey, claims.Client)
	ctx, _ := logger.WithCaller(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.Client)
	c.Request = c.Request.WithContext(ctx)

	a.log.Debug("JWT authentication successful",
		zap.String("client", claims.Client),
		zap.Strings("scopes", claims.Scopes))
	c.Next()
}

func (a *authenticator) authenticate(c *gin.Context) (*auth.Claims, error) {
	token, ok := strings.CutPrefix(c.GetHeader(AuthHeaderKey), BearerPrefix)
	if token = strings.TrimSpace(token); !ok || token == "" {
		return nil, errMissingBearer
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if a.revocations == nil || claims.ID == "" {
		return claims, nil
	}

	revoked, err := a.revocations.IsRevoked(c.Request.Context(), claims.ID)
	switch {
	case err != nil:
		a.log.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
	case revoked:
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

func (a *authenticator) isPublic(path string) bool {
	return slices.ContainsFunc(a.public, func(p string) bool {
		if strings.HasSuffix(p, "/") {
			return strings.HasPrefix(path, p)
		}
		return path == p
	})
}

// RequireScope answers 403 when the token lacks scope. It must run after
// JWTAuthMiddleware.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		switch {
		case claims == nil:
			abortUnauthorized(c, auth.ErrInvalidToken)
		case !claims.HasScope(scope):
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Token does not grant scope "+scope, c.GetString(logger.GinRequestIDKey)))
		default:
			c.Next()
		}
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenInvalid, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingClient):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(logger.GinRequestIDKey)))
}

func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetJWTClient is empty for unauthenticated requests
func GetJWTClient(c *gin.Context) string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.Client
	}
	return ""
}

func GetJWTScopes(c *gin.Context) []string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.Scopes
	}
	return nil
}
