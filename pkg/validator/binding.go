package validator

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// StructValidator adapts Validator to gin's binding so ShouldBind reports the
// same field errors the services do.
type StructValidator struct {
	*Validator
}

var _ binding.StructValidator = (*StructValidator)(nil)

func NewStructValidator() *StructValidator {
	return &StructValidator{Validator: New()}
}

func (s *StructValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return s.Struct(obj)
}

func (s *StructValidator) Engine() any {
	return s.v
}
