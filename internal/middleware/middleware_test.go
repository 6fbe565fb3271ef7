package middleware

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestIDPropagates(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		info := httputil.ClientInfoFrom(c.Request.Context())
		c.String(http.StatusOK, info.RequestID+"|"+info.UserAgent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httputil.HeaderXRequestID, "abc")
	req.Header.Set("User-Agent", "ward-terminal")
	w := perform(engine, req)
	assert.Equal(t, "abc|ward-terminal", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(httputil.HeaderXRequestID))

	w = perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(httputil.HeaderXRequestID))
}

func TestRecoveryReturnsJSON(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Recovery())
	engine.GET("/", func(c *gin.Context) { panic("boom") })

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, httputil.StatusError, body.Status)
	assert.NotEmpty(t, body.RequestID)
}

func TestErrorHandlerAnswersUnwrittenErrors(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandler())
	engine.GET("/", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("doctor", nil))
	})

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "doctor not found")
}

func TestCompressJSON(t *testing.T) {
	engine := gin.New()
	engine.Use(Compress(DefaultCompressConfig()))
	engine.GET("/data", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"title": strings.Repeat("biopsy ", 50)})
	})
	engine.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "up 1") })

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := perform(engine, req)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "biopsy biopsy")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = perform(engine, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "up 1", w.Body.String())
}

func TestTimeoutBoundsContext(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(TimeoutConfig{Duration: 10 * time.Millisecond}))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	engine.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = perform(engine, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 1})
	engine := gin.New()
	engine.Use(rl.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return perform(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:1000"))
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Every(time.Hour),
		Burst:           1,
		IdleTimeout:     500 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	assert.True(t, rl.limiter("10.0.0.1").Allow())
	assert.False(t, rl.limiter("10.0.0.1").Allow())

	for i := 0; i < 500; i++ {
		rl.limiter(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	assert.Equal(t, 501, rl.Clients())

	assert.Eventually(t, func() bool { return rl.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, rl.limiter("10.0.0.1").Allow())
}

func TestRateLimiterKeepsActiveClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Every(time.Hour),
		Burst:           1,
		IdleTimeout:     200 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	assert.True(t, rl.limiter("10.0.0.1").Allow())
	for i := 0; i < 5; i++ {
		time.Sleep(60 * time.Millisecond)
		assert.False(t, rl.limiter("10.0.0.1").Allow())
	}
	assert.Equal(t, 1, rl.Clients())
}

func TestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 16, MaxHeaderSize: 1 << 10}))
	engine.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := perform(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCacheHeaders(t *testing.T) {
	engine := gin.New()
	engine.Use(Cache(CacheConfig{MaxAge: 60, StaleIfError: 30}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=60, stale-if-error=30", w.Header().Get("Cache-Control"))

	w = perform(engine, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCORSPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig()))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://ward.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := perform(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name   string
		config func(*SecurityConfig)
		path   string
		hsts   string
		policy string
		frame  string
	}{
		{
			name:   "catalog page",
			path:   "/catalog/doctors",
			policy: "form-action 'self'",
			frame:  "DENY",
		},
		{
			name:   "json api",
			path:   "/api/v1/doctors",
			policy: "default-src 'none'",
			frame:  "DENY",
		},
		{
			name:   "hsts enabled",
			config: func(c *SecurityConfig) { c.HSTS = true; c.HSTSMaxAge = 600 },
			path:   "/api/v1/doctors",
			hsts:   "max-age=600; includeSubDomains",
			policy: "default-src 'none'",
			frame:  "DENY",
		},
		{
			name: "hsts without subdomains and framing allowed",
			config: func(c *SecurityConfig) {
				c.HSTS = true
				c.HSTSIncludeSubdomains = false
				c.FrameDeny = false
			},
			path:   "/catalog",
			hsts:   "max-age=31536000",
			policy: "default-src 'self'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSecurityConfig()
			if tt.config != nil {
				tt.config(&config)
			}
			engine := gin.New()
			engine.Use(SecurityHeaders(config))
			engine.GET(tt.path, func(c *gin.Context) { c.Status(http.StatusOK) })

			w := perform(engine, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.hsts, w.Header().Get("Strict-Transport-Security"))
			assert.Contains(t, w.Header().Get("Content-Security-Policy"), tt.policy)
			assert.Equal(t, tt.frame, w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

