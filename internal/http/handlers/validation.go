package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-books-backend/internal/failure"
)

// validationMessage is the errors.message of every structural validation
// failure; the per-field detail goes into errors.fields.
const validationMessage = "Request validation failed"

func init() {
	// Report JSON names ("title") instead of Go field names ("Title").
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// bindFailure converts a gin binding error into a ValidationError signal with
// per-field messages.
func bindFailure(err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
		sizeErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], describeTag(fe))
		}
		return failure.NewValidation(validationMessage, fields)
	case errors.As(err, &sizeErr):
		return bodyFailure(fmt.Sprintf("must not exceed %d bytes", sizeErr.Limit))
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return bodyFailure("must be a JSON object")
		}
		return failure.NewValidation(validationMessage, map[string][]string{
			typeErr.Field: {"must be a " + jsonKind(typeErr.Type)},
		})
	case errors.As(err, &synErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return bodyFailure("must be a valid JSON object")
	default:
		return bodyFailure("could not be parsed")
	}
}

func bodyFailure(msg string) error {
	return failure.NewValidation(validationMessage, map[string][]string{"body": {msg}})
}

// rejectUnknownKeys fails with the names of top-level keys in body that dst
// has no JSON field for. Key matching is exact, so "Title" is unknown.
func rejectUnknownKeys(body []byte, dst any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return bindFailure(err)
	}
	known := knownFields(reflect.TypeOf(dst))
	var unknown []string
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return failure.NewUnknownParameters(unknown)
	}
	return nil
}

func knownFields(t reflect.Type) map[string]bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	known := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonFieldName(t.Field(i)); name != "" {
			known[name] = true
		}
	}
	return known
}

// idFailure reports a path id that is not an integer.
func idFailure() error {
	return failure.NewValidation("Invalid book identifier", map[string][]string{"id": {"must be an integer"}})
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "valid value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	}
	return t.String()
}
