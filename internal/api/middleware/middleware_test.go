package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.POST("/cmd", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, header, value string) int {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cmd", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	r.ServeHTTP(rr, req)
	return rr.Code
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := cfgpkg.AuthConfig{Enabled: true, APIKeys: []string{"collar-key-0001"}}
	r := newEngine(APIKeyAuth(cfg, zap.NewNop()))

	assert.Equal(t, http.StatusUnauthorized, do(r, "", ""))
	assert.Equal(t, http.StatusForbidden, do(r, "X-API-Key", "wrong"))
	assert.Equal(t, http.StatusNoContent, do(r, "X-API-Key", "collar-key-0001"))
	assert.Equal(t, http.StatusNoContent, do(r, "Authorization", "Bearer collar-key-0001"))
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	r := newEngine(APIKeyAuth(cfgpkg.AuthConfig{}, nil))
	assert.Equal(t, http.StatusNoContent, do(r, "", ""))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "coll****0001", maskAPIKey("collar-key-0001"))
}

func TestRateLimit(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_rate_limited_total"})
	r := newEngine(RateLimit(l, rejected))

	assert.Equal(t, http.StatusNoContent, do(r, "", ""))
	assert.Equal(t, http.StatusNoContent, do(r, "", ""))
	assert.Equal(t, http.StatusTooManyRequests, do(r, "", ""))

	stats := l.Stats()
	assert.Equal(t, int64(2), stats.AllowedTotal)
	assert.Equal(t, int64(1), stats.RejectedTotal)
	assert.Equal(t, float64(1), testutil.ToFloat64(rejected))
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(0, 0)
	s := l.Stats()
	assert.Equal(t, float64(2), s.PerSecond)
	assert.Equal(t, 5, s.Burst)
}

func TestRequestTracing(t *testing.T) {
	r := newEngine(RequestTracing())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cmd", nil))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cmd", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	r.ServeHTTP(rr, req)
	assert.Equal(t, "trace-1", rr.Header().Get("X-Request-ID"))
}
