package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownerEcho(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OwnerMiddleware(secret))
	router.GET("/whoami", func(c *gin.Context) {
		owner := OwnerID(c)
		if owner == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, *owner)
	})
	return router
}

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestOwnerMiddleware(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		ownerEcho("secret").ServeHTTP(w, req)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("bearer token subject", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "user-42"))
		ownerEcho("secret").ServeHTTP(w, req)
		assert.Equal(t, "user-42", w.Body.String())
	})

	t.Run("bad signature falls through to header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong", "user-42"))
		req.Header.Set("X-Owner-ID", "header-owner")
		ownerEcho("secret").ServeHTTP(w, req)
		assert.Equal(t, "header-owner", w.Body.String())
	})

	t.Run("owner header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-Owner-ID", "header-owner")
		ownerEcho("secret").ServeHTTP(w, req)
		assert.Equal(t, "header-owner", w.Body.String())
	})

	t.Run("query parameter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami?user_id=query-owner", nil)
		ownerEcho("secret").ServeHTTP(w, req)
		assert.Equal(t, "query-owner", w.Body.String())
	})

	t.Run("unverified parse without secret", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "anything", "user-7"))
		ownerEcho("").ServeHTTP(w, req)
		assert.Equal(t, "user-7", w.Body.String())
	})
}
