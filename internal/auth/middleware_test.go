package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewManager(NewMemoryStore())
	rawKey, _, err := m.Enroll(context.Background(), "0xagent")
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agent": GetAuthenticatedAgent(c)})
	})
	protected := r.Group("", RequireAuth(m))
	protected.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agent": GetAuthenticatedAgent(c)})
	})
	return r, rawKey
}

func TestMiddleware_PublicWithoutKey(t *testing.T) {
	r, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/public", nil))
	if w.Code != http.StatusOK {
		t.Errorf("public route = %d, want 200", w.Code)
	}
}

func TestRequireAuth_RejectsAnonymous(t *testing.T) {
	r, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous protected request = %d, want 401", w.Code)
	}
}

func TestRequireAuth_AcceptsBearerKey(t *testing.T) {
	r, rawKey := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated request = %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuth_AcceptsXAPIKeyHeader(t *testing.T) {
	r, rawKey := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", rawKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("X-API-Key request = %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuth_RejectsGarbageKey(t *testing.T) {
	r, _ := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer gk_bogus")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage key = %d, want 401", w.Code)
	}
}
