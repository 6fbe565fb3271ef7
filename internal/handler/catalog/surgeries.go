package catalog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

func (h *Handler) SurgeryList(c *gin.Context) {
	var filters model.SurgeryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		h.fail(c, err)
		return
	}

	surgeries, err := h.surgeries.List(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "surgery_list.html", gin.H{
		"Title":      "Surgeries",
		"Surgeries":  surgeries,
		"Filters":    filters,
		"ActiveOnly": filters.Active != nil && *filters.Active,
	})
}

func (h *Handler) SurgeryDetail(c *gin.Context) {
	surgery, err := h.surgeries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "surgery_detail.html", gin.H{"Title": surgery.Title, "Surgery": surgery})
}

func (h *Handler) SurgeryCreateForm(c *gin.Context) {
	form, err := h.surgeries.CreateForm(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderSurgeryForm(c, http.StatusOK, form, &model.SurgeryRequest{}, "", map[string]string{})
}

func (h *Handler) SurgeryCreate(c *gin.Context) {
	var req model.SurgeryRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.resubmitCreate(c, status, &req, message, fields)
		return
	}

	surgery, err := h.surgeries.Create(c.Request.Context(), &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.resubmitCreate(c, status, &req, message, fields)
		return
	}
	redirect(c, "/catalog/surgery/"+surgery.ID)
}

// resubmitCreate re-renders the create form with the submitted doctors ticked.
func (h *Handler) resubmitCreate(c *gin.Context, status int, req *model.SurgeryRequest, message string, fields map[string]string) {
	form, err := h.surgeries.CreateForm(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	markChecked(form, req.Doctor)
	h.renderSurgeryForm(c, status, form, req, message, fields)
}

func (h *Handler) SurgeryUpdateForm(c *gin.Context) {
	form, err := h.surgeries.UpdateForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderSurgeryForm(c, http.StatusOK, form, requestFrom(form.Surgery, h.loc), "", map[string]string{})
}

func (h *Handler) SurgeryUpdate(c *gin.Context) {
	id := c.Param("id")

	var req model.SurgeryRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.resubmitUpdate(c, id, status, &req, message, fields)
		return
	}

	surgery, err := h.surgeries.Update(c.Request.Context(), id, &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.resubmitUpdate(c, id, status, &req, message, fields)
		return
	}
	redirect(c, "/catalog/surgery/"+surgery.ID)
}

func (h *Handler) resubmitUpdate(c *gin.Context, id string, status int, req *model.SurgeryRequest, message string, fields map[string]string) {
	form, err := h.surgeries.UpdateForm(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	markChecked(form, req.Doctor)
	h.renderSurgeryForm(c, status, form, req, message, fields)
}

func (h *Handler) SurgeryDeleteForm(c *gin.Context) {
	surgery, err := h.surgeries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.confirmDelete(c, "Delete surgery", surgery.Title, "/catalog/surgery/"+surgery.ID)
}

func (h *Handler) SurgeryDelete(c *gin.Context) {
	if err := h.surgeries.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, "/catalog/surgeries")
}

func (h *Handler) renderSurgeryForm(c *gin.Context, status int, form *model.SurgeryForm, req *model.SurgeryRequest, message string, fields map[string]string) {
	title, action := "Schedule a surgery", "/catalog/surgery/create"
	if form.Surgery != nil {
		title, action = "Update "+form.Surgery.Title, "/catalog/surgery/"+form.Surgery.ID+"/update"
	}
	c.HTML(status, "surgery_form.html", gin.H{
		"Title":   title,
		"Action":  action,
		"Form":    form,
		"Request": req,
		"Error":   message,
		"Fields":  fields,
	})
}

// markChecked ticks exactly the submitted doctors on the form's options.
func markChecked(form *model.SurgeryForm, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range form.Doctors {
		_, ok := set[form.Doctors[i].ID]
		form.Doctors[i].Selected = ok
		form.Doctors[i].Checked = ok
	}
}

func requestFrom(s *model.SurgeryDetail, loc *time.Location) *model.SurgeryRequest {
	if s == nil {
		return &model.SurgeryRequest{}
	}
	return &model.SurgeryRequest{
		Title:   s.Title,
		Patient: s.PatientID,
		Doctor:  model.IDList(s.DoctorIDs),
		Date:    scheduling.DayKey(s.Date, loc),
		Summary: s.Summary,
		Active:  s.Active,
	}
}
