package httpmiddleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthConfig configures RequireAuth.
type AuthConfig struct {
	// Secret verifies HS256 signatures. When empty, tokens are decoded
	// without signature verification and only their expiry is checked;
	// the identity provider remains the authority on signatures.
	Secret []byte
	// CookieName is checked when no Authorization header is present.
	CookieName string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

type subjectKey struct{}

// SubjectFromContext returns the "sub" claim of the token that authorized
// the request.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}

// RequireAuth rejects requests without a bearer token or session cookie
// holding a JWT that carries an exp claim in the future.
func RequireAuth(cfg AuthConfig) Middleware {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if len(cfg.Secret) > 0 {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r, cfg.CookieName)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := parseToken(parser, raw, cfg.Secret)
			if err != nil {
				zctx.From(r.Context()).Debug("Token rejected", zap.Error(err))
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				writeError(w, http.StatusUnauthorized, msg)
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(parser *jwt.Parser, raw string, secret []byte) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if len(secret) == 0 {
		if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
			return nil, err
		}
		if err := jwt.NewValidator(jwt.WithExpirationRequired()).Validate(claims); err != nil {
			return nil, err
		}
		return claims, nil
	}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
