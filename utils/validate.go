package utils

import (
	"errors"
	"reflect"
	"strings"

	"coderoast-backend/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json name so error maps match request bodies.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// Messager is implemented by DTOs that carry human-readable messages,
// keyed by "<json field>.<tag>", e.g. "code.required".
type Messager interface {
	ValidationMessages() map[string]string
}

// ValidateStruct validates v and returns an *apperr.Error of KindValidation
// with field-keyed messages on failure.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	var messages map[string]string
	if m, ok := v.(Messager); ok {
		messages = m.ValidationMessages()
	}
	fields := make(map[string][]string, len(ve))
	for _, fe := range ve {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = defaultMessage(fe)
		}
		fields[fe.Field()] = append(fields[fe.Field()], msg)
	}
	return apperr.Validation(fields)
}

func defaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "email":
		return "Please enter a valid email"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
