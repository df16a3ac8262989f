package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	g := r.Group("/", JWTAuth(testSecret))
	g.GET("/any", func(c *gin.Context) { c.String(http.StatusOK, GetClaims(c).UserID) })
	g.GET("/admin", RequireRole(RoleAdministrador), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := authRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/any", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/any", "garbage").Code)

	other, err := IssueToken("other-secret", "7", "ana", RoleCajero, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/any", other).Code)

	expired, err := IssueToken(testSecret, "7", "ana", RoleCajero, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/any", expired).Code)

	tok, err := IssueToken(testSecret, "7", "ana", RoleCajero, time.Hour)
	require.NoError(t, err)
	w := do(r, "GET", "/any", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := authRouter()

	cajero, _ := IssueToken(testSecret, "7", "ana", RoleCajero, time.Hour)
	assert.Equal(t, http.StatusForbidden, do(r, "GET", "/admin", cajero).Code)

	admin, _ := IssueToken(testSecret, "1", "root", RoleAdministrador, time.Hour)
	assert.Equal(t, http.StatusOK, do(r, "GET", "/admin", admin).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, "GET", "/", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(10)) // burst of 1
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "GET", "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "GET", "/", "").Code)
}

func TestIPLimiterPurge(t *testing.T) {
	l := newIPLimiter(60)
	now := time.Now()
	l.get("1.1.1.1", now.Add(-time.Hour))
	l.get("2.2.2.2", now)
	assert.Equal(t, 1, l.purge(now, time.Minute))
	assert.Len(t, l.visitors, 1)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(""))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodOptions, "/", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := do(r, "GET", "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, w.Body.String())
}
