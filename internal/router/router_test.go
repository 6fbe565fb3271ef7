package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/handler/catalog"
	doctorhandler "github.com/jwalitptl/hospital-api/internal/handler/doctor"
	patienthandler "github.com/jwalitptl/hospital-api/internal/handler/patient"
	surgeryhandler "github.com/jwalitptl/hospital-api/internal/handler/surgery"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/internal/service"
	catalogservice "github.com/jwalitptl/hospital-api/internal/service/catalog"
	doctorservice "github.com/jwalitptl/hospital-api/internal/service/doctor"
	patientservice "github.com/jwalitptl/hospital-api/internal/service/patient"
	surgeryservice "github.com/jwalitptl/hospital-api/internal/service/surgery"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return newTestRouterWith(t, nil)
}

func newTestRouterWith(t *testing.T, configure func(*RouterConfig)) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	doctors := memory.NewDoctorRepository(store)
	patients := memory.NewPatientRepository(store)
	surgeries := memory.NewSurgeryRepository(store)
	tracker := service.NewTracker(nil, nil, nil)
	reg := prometheus.NewRegistry()

	doctorSvc := doctorservice.NewService(doctors, surgeries, tracker, time.Minute, time.UTC)
	patientSvc := patientservice.NewService(patients, surgeries, tracker, time.UTC)
	surgerySvc := surgeryservice.NewService(
		surgeries, doctors, patients, memory.NewBookingRepository(store, time.UTC),
		scheduling.NewGuard(time.UTC), tracker, metrics.NewMetrics(reg, "test"), nil,
	)

	templates, err := catalog.Templates(time.UTC)
	require.NoError(t, err)

	config := RouterConfig{
		Mode:           gin.TestMode,
		CORSConfig:     middleware.DefaultCORSConfig(),
		RequestTimeout: 5 * time.Second,
		BodyLimit:      1 << 20,
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
		MetricsPrefix:  "hospital_test",
		Registerer:     reg,
	}
	if configure != nil {
		configure(&config)
	}

	r := NewRouter(Handlers{
		Base:      handler.NewHandler(reg, nil),
		Doctors:   doctorhandler.NewHandler(doctorSvc),
		Patients:  patienthandler.NewHandler(patientSvc),
		Surgeries: surgeryhandler.NewHandler(surgerySvc),
		Catalog: catalog.NewHandler(
			catalogservice.NewService(doctors, patients, surgeries),
			doctorSvc, patientSvc, surgerySvc, time.UTC,
		),
		Templates: templates,
	}, config)
	r.Setup()
	return r
}

func do(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func createdID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func TestDoubleBookingOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	engine := r.Engine()

	house := createdID(t, do(t, engine, http.MethodPost, "/api/v1/doctors", map[string]interface{}{
		"first_name": "Gregory", "family_name": "House",
	}))
	patient := createdID(t, do(t, engine, http.MethodPost, "/api/v1/patients", map[string]interface{}{
		"first_name": "Rebecca", "family_name": "Adler", "diagnosis": "Tapeworm",
	}))

	surgery := map[string]interface{}{
		"title":   "Biopsy",
		"patient": patient,
		"doctor":  house,
		"date":    "2026-03-14",
		"summary": "Tissue sample",
		"active":  true,
	}
	createdID(t, do(t, engine, http.MethodPost, "/api/v1/surgeries", surgery))

	surgery["title"] = "Lumbar puncture"
	w := do(t, engine, http.MethodPost, "/api/v1/surgeries", surgery)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "This doctor (House, Gregory) has active surgery on 2026-03-14", resp.Message)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.metrics.errorTotal.WithLabelValues(http.MethodPost, "/api/v1/surgeries", "client"),
	))
}

func TestValidationErrorsComeFromBinding(t *testing.T) {
	engine := newTestRouter(t).Engine()

	w := do(t, engine, http.MethodPost, "/api/v1/surgeries", map[string]interface{}{"title": "Biopsy"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "patient")
	assert.Contains(t, w.Body.String(), "date")
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	engine := newTestRouter(t).Engine()

	w := do(t, engine, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, engine, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hospital_test_requests_total")
}

func TestCatalogViews(t *testing.T) {
	engine := newTestRouter(t).Engine()

	w := do(t, engine, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/catalog", w.Header().Get("Location"))

	w = do(t, engine, http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))

	w = do(t, engine, http.MethodGet, "/api/v1/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"doctor_count":0`)
}

func TestUnmatchedRoutesShareALabel(t *testing.T) {
	r := newTestRouter(t)

	do(t, r.Engine(), http.MethodGet, "/nope/1", nil)
	do(t, r.Engine(), http.MethodGet, "/nope/2", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		r.metrics.errorTotal.WithLabelValues(http.MethodGet, "unmatched", "client"),
	))
}

func TestSecurityConfigReachesResponses(t *testing.T) {
	engine := newTestRouter(t).Engine()
	w := do(t, engine, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	engine = newTestRouterWith(t, func(c *RouterConfig) {
		security := middleware.DefaultSecurityConfig()
		security.HSTS = true
		security.HSTSMaxAge = 86400
		security.HSTSIncludeSubdomains = false
		c.Security = &security
	}).Engine()

	w = do(t, engine, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, "max-age=86400", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))

	w = do(t, engine, http.MethodGet, "/catalog", nil)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "form-action 'self'")
}

func TestRateLimitIsPerClient(t *testing.T) {
	engine := newTestRouterWith(t, func(c *RouterConfig) {
		c.RateLimit = rate.Every(time.Hour)
		c.RateBurst = 1
		c.RateIdle = time.Minute
	}).Engine()

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, from("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:1000"))
}
