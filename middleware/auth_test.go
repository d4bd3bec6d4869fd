package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKeys(t *testing.T) *auth.Keys {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	keys, err := auth.NewKeys(privatePEM, publicPEM)
	require.NoError(t, err)
	return keys
}

func newTestRouter(t *testing.T, keys *auth.Keys) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := NewMid(keys)
	require.NoError(t, err)

	whoami := func(c *gin.Context) {
		claims := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.Subject})
	}

	r := gin.New()
	r.Use(Logger())
	protected := r.Group("/protected")
	protected.Use(m.Authentication())
	protected.GET("/whoami", whoami)
	protected.GET("/admin", m.Authorize(whoami, auth.RoleAdmin))
	return r
}

func TestAuthentication(t *testing.T) {
	keys := generateTestKeys(t)
	router := newTestRouter(t, keys)

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		token, err := keys.GenerateToken("user-123", []string{auth.RoleUser}, time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-123")
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/whoami", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/whoami", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a tampered token", func(t *testing.T) {
		token, err := keys.GenerateToken("user-123", []string{auth.RoleUser}, time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthorize(t *testing.T) {
	keys := generateTestKeys(t)
	router := newTestRouter(t, keys)

	t.Run("allows the required role", func(t *testing.T) {
		token, err := keys.GenerateToken("admin-1", []string{auth.RoleUser, auth.RoleAdmin}, time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forbids a missing role", func(t *testing.T) {
		token, err := keys.GenerateToken("user-123", []string{auth.RoleUser}, time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
