package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func newAuthApp(a *Auth) *fiber.App {
	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		id, err := GetUserID(c)
		if err != nil {
			return err
		}
		return c.SendString(id)
	}
	app.Get("/me", a.Middleware(), whoami)
	app.Get("/admin", a.Middleware(), a.Admin(), whoami)
	app.Get("/ws", a.WebSocket(), whoami)
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestParseToken(t *testing.T) {
	a := NewAuth(secret, nil)

	tok, err := a.IssueToken("user-1", time.Hour)
	require.NoError(t, err)
	id, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	numeric := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(42),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := numeric.SignedString([]byte(secret))
	require.NoError(t, err)
	id, err = a.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestParseTokenRejects(t *testing.T) {
	a := NewAuth(secret, nil)
	sign := func(key string, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"wrong key":     sign("other", jwt.MapClaims{"user_id": "u", "exp": exp}),
		"expired":       sign(secret, jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no expiry":     sign(secret, jwt.MapClaims{"user_id": "u"}),
		"no user":       sign(secret, jwt.MapClaims{"exp": exp}),
		"empty user":    sign(secret, jwt.MapClaims{"user_id": "", "exp": exp}),
		"garbage input": "abc.def.ghi",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.ParseToken(tok)
			assert.Error(t, err)
		})
	}
}

func TestMiddlewareSetsUser(t *testing.T) {
	a := NewAuth(secret, nil)
	app := newAuthApp(a)
	tok, err := a.IssueToken("u1", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, app, "/me", tok))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", ""))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic "+tok)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequiresListedUser(t *testing.T) {
	a := NewAuth(secret, func(id string) bool { return id == "root" })
	app := newAuthApp(a)

	user, err := a.IssueToken("u1", time.Hour)
	require.NoError(t, err)
	root, err := a.IssueToken("root", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(t, app, "/admin", user))
	assert.Equal(t, http.StatusOK, get(t, app, "/admin", root))
}

func TestWebSocketAcceptsQueryToken(t *testing.T) {
	a := NewAuth(secret, nil)
	app := newAuthApp(a)
	tok, err := a.IssueToken("u1", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, app, "/ws?token="+tok, ""))
	assert.Equal(t, http.StatusOK, get(t, app, "/ws", tok))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/ws", ""))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/ws?token=bad", ""))
}
