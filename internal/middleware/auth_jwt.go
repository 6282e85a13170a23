package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries the merchant identity and plan inside the bearer token.
type TokenClaims struct {
	Plan string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

type merchantKey string

const merchantIDKey merchantKey = "merchant_id"

// SignToken issues an HS256 token for a merchant. Used by tests and tooling;
// token issuance for real sessions lives outside this service.
func SignToken(secret, merchantID, plan string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Plan: plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   merchantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken parses and validates a bearer token, enforcing HS256.
func VerifyToken(secret, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AuthJWT rejects requests without a valid bearer token and stores the
// merchant ID in the request context.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			claims, err := VerifyToken(secret, token)
			if err != nil || claims.Subject == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), merchantIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MerchantIDFromContext returns the authenticated merchant ID, if any.
func MerchantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(merchantIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithMerchantID injects a merchant ID, for tests and workers.
func ContextWithMerchantID(ctx context.Context, merchantID string) context.Context {
	if strings.TrimSpace(merchantID) == "" {
		return ctx
	}
	return context.WithValue(ctx, merchantIDKey, merchantID)
}
