package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// DateLayout is the layout accepted by the calendarday tag.
const DateLayout = "2006-01-02"

var messages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email",
	"max":         "is too long",
	"min":         "is too short",
	"calendarday": "must be a date in YYYY-MM-DD format",
}

// Validator checks request structs against their validate tags.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("calendarday", calendarDay); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

func calendarDay(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// Struct validates obj and reports failures as a validation AppError.
func (v *Validator) Struct(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.BadRequest("invalid request", err)
	}
	return apperrors.Validation(Fields(verrs))
}

// Fields converts validator errors into per field messages.
func Fields(verrs validator.ValidationErrors) []apperrors.FieldError {
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on %s", e.Tag())
		}
		fields = append(fields, apperrors.FieldError{Field: e.Field(), Message: msg})
	}
	return fields
}
