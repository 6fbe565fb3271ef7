package surgery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Service interface {
	CreateForm(ctx context.Context) (*model.SurgeryForm, error)
	UpdateForm(ctx context.Context, id string) (*model.SurgeryForm, error)
	Check(ctx context.Context, id string, req *model.SurgeryRequest) (scheduling.Result, error)
	Create(ctx context.Context, req *model.SurgeryRequest) (*model.SurgeryDetail, error)
	Update(ctx context.Context, id string, req *model.SurgeryRequest) (*model.SurgeryDetail, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.SurgeryDetail, error)
	List(ctx context.Context, filters model.SurgeryFilters) ([]*model.SurgeryDetail, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	surgeries := r.Group("/surgeries")
	{
		surgeries.GET("", h.ListSurgeries)
		surgeries.POST("", h.CreateSurgery)
		surgeries.GET("/form", h.CreateForm)
		surgeries.POST("/check", h.CheckSurgery)
		surgeries.GET("/:id", h.GetSurgery)
		surgeries.PUT("/:id", h.UpdateSurgery)
		surgeries.DELETE("/:id", h.DeleteSurgery)
		surgeries.GET("/:id/form", h.UpdateForm)
	}
}

// CheckResponse reports a dry-run conflict check.
type CheckResponse struct {
	Conflict bool `json:"conflict"`
	scheduling.Result
}

func (h *Handler) ListSurgeries(c *gin.Context) {
	var filters model.SurgeryFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	surgeries, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, surgeries)
}

func (h *Handler) CreateSurgery(c *gin.Context) {
	var req model.SurgeryRequest
	if !handler.Bind(c, &req) {
		return
	}

	surgery, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, surgery)
}

// CheckSurgery runs the conflict rules without saving. The optional id query
// parameter names the surgery being edited so it does not conflict with itself.
func (h *Handler) CheckSurgery(c *gin.Context) {
	var req model.SurgeryRequest
	if !handler.Bind(c, &req) {
		return
	}

	result, err := h.service.Check(c.Request.Context(), c.Query("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, CheckResponse{Conflict: result.HasConflict(), Result: result})
}

func (h *Handler) CreateForm(c *gin.Context) {
	form, err := h.service.CreateForm(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, form)
}

func (h *Handler) UpdateForm(c *gin.Context) {
	form, err := h.service.UpdateForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, form)
}

func (h *Handler) GetSurgery(c *gin.Context) {
	surgery, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, surgery)
}

func (h *Handler) UpdateSurgery(c *gin.Context) {
	var req model.SurgeryRequest
	if !handler.Bind(c, &req) {
		return
	}

	surgery, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, surgery)
}

func (h *Handler) DeleteSurgery(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}
