package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxtravel/internal/logger"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func TestRequestIDAndUserID(t *testing.T) {
	r := newRouter(RequestID(), UserID("user-123"))

	var gotRequestID, gotUserID string
	r.GET("/ping", func(c *gin.Context) {
		gotRequestID, _ = logger.RequestIDFromContext(c.Request.Context())
		gotUserID, _ = logger.UserIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, "user-123", gotUserID)
	assert.Len(t, gotRequestID, 36)
	assert.Equal(t, gotRequestID, w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc")
	req.Header.Set(HeaderUserID, "user-9")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc", gotRequestID)
	assert.Equal(t, "user-9", gotUserID)
}

func TestRecovery(t *testing.T) {
	r := newRouter(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORS([]string{"https://luxtravel.example"}))
	r.POST("/api/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
	req.Header.Set("Origin", "https://luxtravel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	require.Less(t, w.Code, 300)
	assert.Equal(t, "https://luxtravel.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := newRouter(Timeout(5 * time.Second))

	var hasDeadline bool
	r.GET("/slow", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.True(t, hasDeadline)
}
