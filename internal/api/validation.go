package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var requestValidator = newRequestValidator()

// newRequestValidator reports fields by their JSON names so messages match
// what the caller sent.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var errInvalidJSON = errors.New("invalid JSON body")

// tagMessages maps a failed validation tag to the text after the field name.
var tagMessages = map[string]string{
	"required": "is required",
	"max":      "is too long",
	"gt":       "is out of range",
	"min":      "is out of range",
	"lte":      "must be a 24-bit color",
}

// decodeAndValidate reads exactly one JSON value with no unknown fields and
// runs the struct's validate tags. Only the first failing field is reported.
func decodeAndValidate(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errInvalidJSON
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}

	err := requestValidator.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.New("invalid request payload")
	}

	first := fieldErrs[0]
	if msg, ok := tagMessages[first.Tag()]; ok {
		return fmt.Errorf("%s %s", first.Field(), msg)
	}
	return fmt.Errorf("invalid %s", first.Field())
}
