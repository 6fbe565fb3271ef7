// Package catalog serves the server-rendered pages for browsing and editing
// doctors, patients and surgeries.
package catalog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler/doctor"
	"github.com/jwalitptl/hospital-api/internal/handler/patient"
	"github.com/jwalitptl/hospital-api/internal/handler/surgery"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type CountService interface {
	Counts(ctx context.Context) (*model.Counts, error)
}

type Handler struct {
	counts    CountService
	doctors   doctor.Service
	patients  patient.Service
	surgeries surgery.Service
	loc       *time.Location
}

func NewHandler(counts CountService, doctors doctor.Service, patients patient.Service, surgeries surgery.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		counts:    counts,
		doctors:   doctors,
		patients:  patients,
		surgeries: surgeries,
		loc:       loc,
	}
}

// RegisterRoutes mounts the JSON home endpoint on the API group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/", h.Counts)
}

// RegisterViews mounts the HTML pages. The engine must have the catalog
// templates loaded.
func (h *Handler) RegisterViews(r *gin.RouterGroup) {
	r.GET("", h.Home)

	r.GET("/doctors", h.DoctorList)
	r.GET("/doctor/create", h.DoctorCreateForm)
	r.POST("/doctor/create", h.DoctorCreate)
	r.GET("/doctor/:id", h.DoctorDetail)
	r.GET("/doctor/:id/update", h.DoctorUpdateForm)
	r.POST("/doctor/:id/update", h.DoctorUpdate)
	r.GET("/doctor/:id/delete", h.DoctorDeleteForm)
	r.POST("/doctor/:id/delete", h.DoctorDelete)

	r.GET("/patients", h.PatientList)
	r.GET("/patient/create", h.PatientCreateForm)
	r.POST("/patient/create", h.PatientCreate)
	r.GET("/patient/:id", h.PatientDetail)
	r.GET("/patient/:id/update", h.PatientUpdateForm)
	r.POST("/patient/:id/update", h.PatientUpdate)
	r.GET("/patient/:id/delete", h.PatientDeleteForm)
	r.POST("/patient/:id/delete", h.PatientDelete)

	r.GET("/surgeries", h.SurgeryList)
	r.GET("/surgery/create", h.SurgeryCreateForm)
	r.POST("/surgery/create", h.SurgeryCreate)
	r.GET("/surgery/:id", h.SurgeryDetail)
	r.GET("/surgery/:id/update", h.SurgeryUpdateForm)
	r.POST("/surgery/:id/update", h.SurgeryUpdate)
	r.GET("/surgery/:id/delete", h.SurgeryDeleteForm)
	r.POST("/surgery/:id/delete", h.SurgeryDelete)
}

func (h *Handler) Counts(c *gin.Context) {
	counts, err := h.counts.Counts(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, counts)
}

func (h *Handler) Home(c *gin.Context) {
	counts, err := h.counts.Counts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "home.html", gin.H{"Title": "Hospital records", "Counts": counts})
}

// fail renders the error page. Internal causes stay in the logs.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	message := "Something went wrong. Please try again later."
	if appErr, ok := apperrors.As(err); ok && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	_ = c.Error(err)
	c.HTML(status, "error.html", gin.H{"Title": http.StatusText(status), "Message": message})
}

// formError splits a submission failure into a page message and per field
// messages. ok is false when the failure is not the submitter's to fix.
func formError(err error) (status int, message string, fields map[string]string, ok bool) {
	appErr, isApp := apperrors.As(err)
	if !isApp {
		return 0, "", nil, false
	}
	status = appErr.StatusCode()
	if status != http.StatusBadRequest && status != http.StatusConflict {
		return 0, "", nil, false
	}

	fields = map[string]string{}
	if list, isList := appErr.Details.([]apperrors.FieldError); isList {
		for _, f := range list {
			fields[f.Field] = f.Message
		}
		return status, "Please correct the errors below.", fields, true
	}
	return status, appErr.Message, fields, true
}

// bindFailure describes a form that could not be decoded.
func bindFailure(err error) (int, string, map[string]string) {
	if status, message, fields, ok := formError(err); ok {
		return status, message, fields
	}
	return http.StatusBadRequest, "The form could not be read.", map[string]string{}
}

func (h *Handler) confirmDelete(c *gin.Context, title, name, back string) {
	c.HTML(http.StatusOK, "confirm_delete.html", gin.H{
		"Title":  title,
		"Name":   name,
		"Action": c.Request.URL.Path,
		"Back":   back,
	})
}

// formDay renders an optional date for a date input.
func formDay(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return scheduling.DayKey(*t, loc)
}

// splitList turns comma separated form values into a flat list.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}
