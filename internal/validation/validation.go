// Package validation checks request bodies against their validate tags.
//
// A field can carry a msg tag with the user-facing text for a failed rule,
// either a single message or per-rule entries like "required=...|oneof=...".
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Error is a failed rule on one request field
type Error struct {
	Field   string
	Tag     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validator plugs into fiber.Config.StructValidator
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the notblank rule registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate runs the rules of a struct and reports the first failure
func (v *Validator) Validate(out any) error {
	err := v.validate.Struct(out)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Tag: fe.Tag(), Message: message(out, fe)}
}

// Message returns the user-facing text for a bind error
func Message(err error) string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Message
	}
	return "Invalid request body"
}

func message(out any, fe validator.FieldError) string {
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := pick(f.Tag.Get("msg"), fe.Tag()); msg != "" {
				return msg
			}
		}
	}
	return fe.Field() + " is invalid"
}

func pick(raw, tag string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "=") {
		return raw
	}
	for _, entry := range strings.Split(raw, "|") {
		rule, msg, ok := strings.Cut(entry, "=")
		if ok && rule == tag {
			return msg
		}
	}
	return ""
}
