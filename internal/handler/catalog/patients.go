package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/model"
)

func (h *Handler) PatientList(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "patient_list.html", gin.H{"Title": "Patients", "Patients": patients})
}

func (h *Handler) PatientDetail(c *gin.Context) {
	detail, err := h.patients.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "patient_detail.html", gin.H{"Title": detail.Patient.Name(), "Detail": detail})
}

func (h *Handler) PatientCreateForm(c *gin.Context) {
	h.renderPatientForm(c, http.StatusOK, "", &model.CreatePatientRequest{}, "", map[string]string{})
}

func (h *Handler) PatientCreate(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.renderPatientForm(c, status, "", &req, message, fields)
		return
	}

	patient, err := h.patients.Create(c.Request.Context(), &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.renderPatientForm(c, status, "", &req, message, fields)
		return
	}
	redirect(c, "/catalog/patient/"+patient.ID)
}

func (h *Handler) PatientUpdateForm(c *gin.Context) {
	detail, err := h.patients.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	p := detail.Patient
	h.renderPatientForm(c, http.StatusOK, p.ID, &model.UpdatePatientRequest{
		FirstName:   p.FirstName,
		FamilyName:  p.FamilyName,
		DateOfBirth: formDay(p.DateOfBirth, h.loc),
		DateOfDeath: formDay(p.DateOfDeath, h.loc),
		Diagnosis:   p.Diagnosis,
		Treatment:   p.Treatment,
	}, "", map[string]string{})
}

func (h *Handler) PatientUpdate(c *gin.Context) {
	id := c.Param("id")

	var req model.UpdatePatientRequest
	if err := c.ShouldBind(&req); err != nil {
		status, message, fields := bindFailure(err)
		h.renderPatientForm(c, status, id, &req, message, fields)
		return
	}

	patient, err := h.patients.Update(c.Request.Context(), id, &req)
	if err != nil {
		status, message, fields, ok := formError(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.renderPatientForm(c, status, id, &req, message, fields)
		return
	}
	redirect(c, "/catalog/patient/"+patient.ID)
}

// renderPatientForm shows the create form, or the update form when id is set.
func (h *Handler) renderPatientForm(c *gin.Context, status int, id string, req *model.CreatePatientRequest, message string, fields map[string]string) {
	title, action := "Add a patient", "/catalog/patient/create"
	if id != "" {
		title, action = "Update patient", "/catalog/patient/"+id+"/update"
	}
	c.HTML(status, "patient_form.html", gin.H{
		"Title":   title,
		"Action":  action,
		"Request": req,
		"Error":   message,
		"Fields":  fields,
	})
}

func (h *Handler) PatientDeleteForm(c *gin.Context) {
	detail, err := h.patients.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.confirmDelete(c, "Delete patient", detail.Patient.Name(), "/catalog/patient/"+detail.Patient.ID)
}

func (h *Handler) PatientDelete(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, "/catalog/patients")
}
