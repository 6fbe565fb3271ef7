package doctor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service"
	doctorsvc "github.com/jwalitptl/hospital-api/internal/service/doctor"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup() *gin.Engine {
	store := memory.NewStore()
	svc := doctorsvc.NewService(
		memory.NewDoctorRepository(store),
		memory.NewSurgeryRepository(store),
		service.NewTracker(nil, nil, nil),
		time.Minute,
		time.UTC,
	)
	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) httputil.Response {
	t.Helper()
	var raw struct {
		httputil.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func TestDoctorLifecycle(t *testing.T) {
	engine := setup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors",
		strings.NewReader(`{"first_name":"Gregory","family_name":"House","date_of_birth":"1959-06-11","expertise":["diagnostics"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Doctor
	decode(t, w, &created)
	assert.Equal(t, "House, Gregory", created.Name())

	// HTML style form posts bind through the same handler.
	form := url.Values{"first_name": {"James"}, "family_name": {"Wilson"}, "expertise": {"oncology", "palliative"}}
	req = httptest.NewRequest(http.MethodPut, "/api/v1/doctors/"+created.ID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated model.Doctor
	decode(t, w, &updated)
	assert.Equal(t, []string{"oncology", "palliative"}, updated.Expertise)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/doctors/"+created.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.DoctorDetail
	decode(t, w, &detail)
	assert.Equal(t, "Wilson", detail.Doctor.FamilyName)
	assert.Empty(t, detail.Surgeries)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/doctors/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/doctors", nil))
	var doctors []model.Doctor
	decode(t, w, &doctors)
	assert.Empty(t, doctors)
}

func TestCreateDoctorValidation(t *testing.T) {
	engine := setup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors", strings.NewReader(`{"first_name":"Gregory","email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, "validation failed", resp.Message)
}
