package middleware

import (
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/utils"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef-test-secret"

type stubUsers map[string]*entity.User

func (s stubUsers) FindActiveBySub(sub string) (*entity.User, error) {
	if sub == "explode" {
		return nil, errors.New("db closed")
	}
	return s[sub], nil
}

func signToken(t *testing.T, key, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func newServer(t *testing.T, optional bool) *echo.Echo {
	t.Helper()
	verifier, err := utils.NewTokenVerifier(secret)
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewAuthMiddleware(&AuthMiddlewareConfig{
		Verifier: verifier,
		UserRepo: stubUsers{"agent-1": {ID: 1, Username: "agent", Active: true}},
		Optional: optional,
	}))
	e.GET("/whoami", func(c echo.Context) error {
		user := utils.OptionalUserFromContext(c)
		if user == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		if utils.GetTokenFromContext(c) == nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, user.Username)
	})
	return e
}

func call(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, secret, "agent-1", time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		optional bool
		auth     string
		status   int
		body     string
	}{
		{"valid token", false, "Bearer " + valid, http.StatusOK, "agent"},
		{"missing token", false, "", http.StatusUnauthorized, ""},
		{"optional without token", true, "", http.StatusOK, "anonymous"},
		{"optional with bad token", true, "Bearer garbage", http.StatusUnauthorized, ""},
		{"wrong key", false, "Bearer " + signToken(t, "another-secret-of-16b", "agent-1", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
		{"expired", false, "Bearer " + signToken(t, secret, "agent-1", time.Now().Add(-time.Minute)), http.StatusUnauthorized, ""},
		{"unknown subject", false, "Bearer " + signToken(t, secret, "ghost", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
		{"repository failure", false, "Bearer " + signToken(t, secret, "explode", time.Now().Add(time.Hour)), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(newServer(t, tt.optional), tt.auth)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
