package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/tbourn/go-books-backend/internal/failure"
)

func TestBindFailure_Kinds(t *testing.T) {
	var syn json.SyntaxError
	tests := []struct {
		name  string
		err   error
		field string
		want  string
	}{
		{"size", &http.MaxBytesError{Limit: 10}, "body", "must not exceed 10 bytes"},
		{"syntax", &syn, "body", "must be a valid JSON object"},
		{"typed field", &json.UnmarshalTypeError{Field: "author", Type: reflect.TypeOf("")}, "author", "must be a string"},
		{"typed pointer field", &json.UnmarshalTypeError{Field: "title", Type: reflect.TypeOf(new(string))}, "title", "must be a string"},
		{"typed root", &json.UnmarshalTypeError{Type: reflect.TypeOf(BookRequest{})}, "body", "must be a JSON object"},
		{"other", errors.New("weird"), "body", "could not be parsed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sig *failure.Signal
			if !errors.As(bindFailure(tc.err), &sig) {
				t.Fatalf("expected signal")
			}
			if sig.Kind() != failure.Validation || sig.StatusCode() != http.StatusUnprocessableEntity {
				t.Fatalf("kind=%v status=%d", sig.Kind(), sig.StatusCode())
			}
			got := sig.Fields()[tc.field]
			if len(got) != 1 || got[0] != tc.want {
				t.Fatalf("fields=%v", sig.Fields())
			}
		})
	}
}

func TestJSONFieldName(t *testing.T) {
	typ := reflect.TypeOf(struct {
		A string `json:"alpha,omitempty"`
		B string `json:"-"`
		C string
	}{})
	for i, want := range []string{"alpha", "", "C"} {
		if got := jsonFieldName(typ.Field(i)); got != want {
			t.Fatalf("field %d: %q want %q", i, got, want)
		}
	}
}

func TestJSONKind(t *testing.T) {
	cases := map[reflect.Type]string{
		nil:                      "valid value",
		reflect.TypeOf(""):       "string",
		reflect.TypeOf(1):        "number",
		reflect.TypeOf(1.5):      "number",
		reflect.TypeOf(true):     "boolean",
		reflect.TypeOf(new(int)): "number",
	}
	for typ, want := range cases {
		if got := jsonKind(typ); got != want {
			t.Fatalf("jsonKind(%v) = %q want %q", typ, got, want)
		}
	}
}
