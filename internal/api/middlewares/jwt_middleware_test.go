package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

const secret = "test-secret"

func sign(t *testing.T, claims ServiceClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, authHeader string) (*httptest.ResponseRecorder, *models.UserContext) {
	t.Helper()
	var seen *models.UserContext
	h := ServiceTokenMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserContextFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/query", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestServiceToken_Valid(t *testing.T) {
	user := &models.UserContext{UserID: "u1", Role: "admin", Department: "IT"}
	tok := sign(t, ServiceClaims{
		Service:          GatewayService,
		UserContext:      user,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}, secret)

	rec, seen := serve(t, "Bearer "+tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "IT", seen.Department)
}

func TestServiceToken_WithoutUserContext(t *testing.T) {
	tok := sign(t, ServiceClaims{
		Service:          GatewayService,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}, secret)

	var (
		seen      *models.UserContext
		presented bool
	)
	h := ServiceTokenMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, presented = UserContextFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/internal/query", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, presented)
	assert.Nil(t, seen)
}

func TestUserContextFrom_NoToken(t *testing.T) {
	u, ok := UserContextFrom(context.Background())
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestServiceToken_Rejections(t *testing.T) {
	expired := sign(t, ServiceClaims{
		Service:          GatewayService,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}, secret)
	wrongKey := sign(t, ServiceClaims{Service: GatewayService}, "other-secret")
	wrongService := sign(t, ServiceClaims{Service: "billing"}, secret)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong service", "Bearer " + wrongService, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, seen := serve(t, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.Nil(t, seen)
		})
	}
}

func TestServiceToken_NoSecretConfigured(t *testing.T) {
	h := ServiceTokenMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/documents", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, rec))
}
