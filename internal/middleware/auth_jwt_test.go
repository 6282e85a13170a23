package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func protectedHandler(t *testing.T, gotMerchant *string) http.Handler {
	t.Helper()
	return AuthJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotMerchant = MerchantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthJWTAcceptsValidToken(t *testing.T) {
	t.Parallel()
	token, err := SignToken(testSecret, "m-123", "pro", time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}

	var gotMerchant string
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedHandler(t, &gotMerchant).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotMerchant != "m-123" {
		t.Fatalf("merchant id = %q, want m-123", gotMerchant)
	}
}

func TestAuthJWTRejections(t *testing.T) {
	t.Parallel()
	valid, err := SignToken(testSecret, "m-123", "basic", time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	expired, err := SignToken(testSecret, "m-123", "basic", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	otherSecret, err := SignToken("other-secret", "m-123", "basic", time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	noSubject, err := SignToken(testSecret, "", "basic", time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing_header", header: ""},
		{name: "wrong_scheme", header: "Basic " + valid},
		{name: "garbage_token", header: "Bearer not.a.jwt"},
		{name: "expired", header: "Bearer " + expired},
		{name: "wrong_secret", header: "Bearer " + otherSecret},
		{name: "no_subject", header: "Bearer " + noSubject},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var gotMerchant string
			req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protectedHandler(t, &gotMerchant).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if gotMerchant != "" {
				t.Fatal("handler must not run on rejected requests")
			}
		})
	}
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	t.Parallel()
	token, err := SignToken(testSecret, "m-9", "enterprise", time.Hour)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	claims, err := VerifyToken(testSecret, token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if claims.Subject != "m-9" || claims.Plan != "enterprise" {
		t.Fatalf("claims = %+v", claims)
	}
}
