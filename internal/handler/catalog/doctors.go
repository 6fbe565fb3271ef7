package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/model"
)

func (h *Handler) DoctorList(c *gin.Context) {
	doctors, err := h.doctors.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "doctor_list.html", gin.H{"Title": "Doctors", "Doctors": doctors})
}

func (h *Handler) DoctorDetail(c *gin.Context) {
	detail, err := h.doctors.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "doctor_detail.html", gin.H{"Title": detail.Doctor.Name(), "Detail": detail})
}

func (h *Handler) DoctorCreateForm(c *gin.Context) {
	h.renderDoctorForm(c, http.StatusOK, "", &model.CreateDoctorRequest{}, "", map[string]string{})
}

func (h *Handler) DoctorCreate(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.renderDoctorForm(c, status, "", &req, message, fields)
		return
	}
	req.Expertise = splitList(req.Expertise)
	req.Gender = splitList(req.Gender)

	doctor, err := h.doctors.Create(c.Request.Context(), &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.renderDoctorForm(c, status, "", &req, message, fields)
		return
	}
	redirect(c, "/catalog/doctor/"+doctor.ID)
}

func (h *Handler) DoctorUpdateForm(c *gin.Context) {
	detail, err := h.doctors.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	d := detail.Doctor
	h.renderDoctorForm(c, http.StatusOK, d.ID, &model.UpdateDoctorRequest{
		FirstName:   d.FirstName,
		FamilyName:  d.FamilyName,
		DateOfBirth: formDay(d.DateOfBirth, h.loc),
		Expertise:   d.Expertise,
		Gender:      d.Gender,
		ExtraInfo:   d.ExtraInfo,
		Email:       d.Email,
	}, "", map[string]string{})
}

func (h *Handler) DoctorUpdate(c *gin.Context) {
	id := c.Param("id")

	var req model.UpdateDoctorRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.renderDoctorForm(c, status, id, &req, message, fields)
		return
	}
	req.Expertise = splitList(req.Expertise)
	req.Gender = splitList(req.Gender)

	doctor, err := h.doctors.Update(c.Request.Context(), id, &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.renderDoctorForm(c, status, id, &req, message, fields)
		return
	}
	redirect(c, "/catalog/doctor/"+doctor.ID)
}

// renderDoctorForm shows the create form, or the update form when id is set.
func (h *Handler) renderDoctorForm(c *gin.Context, status int, id string, req *model.CreateDoctorRequest, message string, fields map[string]string) {
	title, action := "Add a doctor", "/catalog/doctor/create"
	if id != "" {
		title, action = "Update doctor", "/catalog/doctor/"+id+"/update"
	}
	c.HTML(status, "doctor_form.html", gin.H{
		"Title":   title,
		"Action":  action,
		"Request": req,
		"Error":   message,
		"Fields":  fields,
	})
}

func (h *Handler) DoctorDeleteForm(c *gin.Context) {
	detail, err := h.doctors.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.confirmDelete(c, "Delete doctor", detail.Doctor.Name(), "/catalog/doctor/"+detail.Doctor.ID)
}

func (h *Handler) DoctorDelete(c *gin.Context) {
	if err := h.doctors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, "/catalog/doctors")
}
