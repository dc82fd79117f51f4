package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sentinelvnc/sentinel/common/httputil"
)

// APIKeyHeader is the shared-secret header used between SentinelVNC services.
const APIKeyHeader = "X-API-Key"

// TokenIssuer is the issuer claim on service tokens.
const TokenIssuer = "sentinel"

var ErrInvalidServiceToken = errors.New("invalid service token")

// ServiceClaims are carried by service-to-service bearer tokens.
type ServiceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// ServiceAuth guards internal endpoints with a shared secret. A request is
// accepted when X-API-Key equals the secret, or when it carries an HS256
// bearer token signed with it. An empty secret disables the check.
// Paths listed in open always pass.
func ServiceAuth(secret string, open ...string) func(http.Handler) http.Handler {
	openPaths := make(map[string]struct{}, len(open))
	for _, p := range open {
		openPaths[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := openPaths[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !Authorized(r, secret) {
				slog.WarnContext(r.Context(), "rejected unauthenticated request",
					slog.String("path", r.URL.Path),
					slog.String("client_ip", httputil.GetClientIP(r)),
					slog.String("request_id", GetRequestID(r.Context())))
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorized reports whether r carries valid credentials for secret.
func Authorized(r *http.Request, secret string) bool {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return subtle.ConstantTimeCompare([]byte(key), []byte(secret)) == 1
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return false
	}
	_, err := ParseServiceToken(strings.TrimSpace(authz[len("Bearer "):]), secret)
	return err == nil
}

// MintServiceToken signs a short-lived token identifying service.
func MintServiceToken(secret, service string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseServiceToken validates a token minted by MintServiceToken.
func ParseServiceToken(token, secret string) (*ServiceClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ServiceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidServiceToken
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(TokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*ServiceClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidServiceToken
	}
	return claims, nil
}
