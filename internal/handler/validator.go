package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/resort-booking/internal/service"
)

// Validator adapts go-playground/validator to echo.Validator.  Failures
// come back as *service.ValidationError named after the JSON field.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return &service.ValidationError{Msg: err.Error()}
	}
	fe := fes[0]
	return &service.ValidationError{Field: fe.Field(), Msg: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be YYYY-MM-DD"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
