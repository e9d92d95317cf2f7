package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hasanat-app/deeds-service/internal/transport/http/response"
)

type ctxKey string

const (
	ctxUserID ctxKey = "user_id"
	ctxRole   ctxKey = "role"
)

// Claims are minted by the community app's auth service; we only verify.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuth(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), issuer: issuer}
}

func (a *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, role, err := a.parse(r)
		if err != nil {
			response.Fail(w, http.StatusUnauthorized, "unauthorized", "unauthorized",
				map[string]string{"reason": err.Error()}, response.RequestIDFromRequest(r))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid, role)))
	})
}

// RequireRole gates a subtree on a role claim; used for admin recompute.
func (a *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Role(r.Context()) != role {
				response.Fail(w, http.StatusForbidden, "forbidden", "insufficient role",
					nil, response.RequestIDFromRequest(r))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *AuthMiddleware) parse(r *http.Request) (string, string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(h, "Bearer ") {
		return "", "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !tok.Valid {
		return "", "", errors.New("invalid token")
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return "", "", errors.New("unexpected issuer")
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", "", errors.New("missing uid claim")
	}
	return claims.UserID, claims.Role, nil
}

// WithUser injects the authenticated identity the same way Require does.
func WithUser(ctx context.Context, uid, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, uid)
	return context.WithValue(ctx, ctxRole, role)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

func Role(ctx context.Context) string {
	v, _ := ctx.Value(ctxRole).(string)
	return v
}
