package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

// Add appends messages for field.
func (f FieldErrors) Add(field string, messages ...string) {
	f[field] = append(f[field], messages...)
}

// Merge copies other's fields that f does not already report.
func (f FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		if _, ok := f[field]; !ok {
			f[field] = messages
		}
	}
}

// Validator checks request inputs against their struct tags and phrases
// the failures per field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates every field of s.
func (v *Validator) Struct(s any) FieldErrors {
	return v.collect(v.validate.Struct(s))
}

// Partial validates only the named struct fields of s. Naming no fields
// validates nothing.
func (v *Validator) Partial(s any, fields ...string) FieldErrors {
	if len(fields) == 0 {
		return FieldErrors{}
	}
	return v.collect(v.validate.StructPartial(s, fields...))
}

func (v *Validator) collect(err error) FieldErrors {
	fields := FieldErrors{}
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("_", err.Error())
		return fields
	}
	for _, fe := range verrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
	return fields
}

// fieldMessage renders one failed rule.
func fieldMessage(fe validator.FieldError) string {
	attr := attribute(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", attr)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", attr)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", attr, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", attr, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", attr)
	default:
		return fmt.Sprintf("The %s field is invalid.", attr)
	}
}

// attribute turns a field key into the words used in messages.
func attribute(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// decodeBody unmarshals the JSON object in the request body into dst and
// returns the set of top-level keys that were present. An empty body counts
// as {}. A value of the wrong JSON type is reported as a field error instead
// of failing the request.
func decodeBody(c *fiber.Ctx, dst any) (map[string]bool, FieldErrors, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, nil, badRequest(msgMalformedBody, "The request body must be a JSON object.")
	}
	present := make(map[string]bool, len(raw))
	for key := range raw {
		present[key] = true
	}

	fields := FieldErrors{}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return nil, nil, badRequest(msgMalformedBody, err.Error())
		}
		fields.Add(typeErr.Field, typeMessage(typeErr))
	}
	return present, fields, nil
}

func typeMessage(err *json.UnmarshalTypeError) string {
	attr := attribute(err.Field)
	switch err.Type.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		return fmt.Sprintf("The %s field must be an integer.", attr)
	case reflect.Bool:
		return fmt.Sprintf("The %s field must be true or false.", attr)
	default:
		return fmt.Sprintf("The %s field must be a string.", attr)
	}
}
