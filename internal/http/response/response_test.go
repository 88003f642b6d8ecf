package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-books-backend/internal/failure"
)

func pinClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func TestBuild_AddsTimestamp_LeavesPayloadUntouched(t *testing.T) {
	pinClock(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.FixedZone("X", 3*3600)))

	in := map[string]any{"id": 1, "title": "Title One"}
	body, status := Build(in, http.StatusCreated)

	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if _, ok := in[TimestampKey]; ok {
		t.Fatalf("input payload was mutated: %#v", in)
	}
	if body["timestamp"] != "2025-01-02T00:04:05.123456Z" {
		t.Fatalf("timestamp = %v, want UTC RFC3339", body["timestamp"])
	}
	delete(body, TimestampKey)
	if !reflect.DeepEqual(body, in) {
		t.Fatalf("non-timestamp fields changed: %#v vs %#v", body, in)
	}
}

func TestBuild_NilPayload_And_ParseableTimestamp(t *testing.T) {
	body, status := Build(nil, http.StatusOK)
	if status != http.StatusOK || len(body) != 1 {
		t.Fatalf("unexpected body/status: %#v %d", body, status)
	}
	ts, ok := body[TimestampKey].(string)
	if !ok {
		t.Fatalf("timestamp missing")
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t.Fatalf("timestamp %q not ISO-8601: %v", ts, err)
	}
	if _, off := parsed.Zone(); off != 0 || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("timestamp %q not UTC", ts)
	}
}

func TestDispatch_TableAndShape(t *testing.T) {
	tests := []struct {
		name   string
		sig    *failure.Signal
		status int
		msg    string
	}{
		{"not found", failure.NewNotFound("Book", 999), 404, "Book with identifier '999' not found"},
		{"invalid", failure.NewInvalid("title must not be blank"), 422, "title must not be blank"},
		{"validation", failure.NewValidation("Validation failed", nil), 422, "Validation failed"},
		{"method", failure.New(failure.MethodNotAllowed, "Method not allowed"), 405, "Method not allowed"},
		{"rate", failure.New(failure.RateLimited, "Rate limit exceeded"), 429, "Rate limit exceeded"},
		{"bad request", failure.NewBadRequest("category must be given at most once"), 400, "category must be given at most once"},
		{"generic", failure.NewGeneric("Internal server error"), 500, "Internal server error"},
		{"nil", nil, 500, failure.InternalMessage},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			body, status := Dispatch(tc.sig)
			if status != tc.status {
				t.Fatalf("status = %d, want %d", status, tc.status)
			}
			if _, ok := body[TimestampKey]; !ok {
				t.Fatalf("timestamp missing: %#v", body)
			}
			errs, ok := body["errors"].(map[string]any)
			if !ok || errs["message"] != tc.msg {
				t.Fatalf("errors.message mismatch: %#v", body)
			}
			if _, ok := errs["fields"]; ok {
				t.Fatalf("fields should be omitted when empty")
			}
			if len(body) != 2 {
				t.Fatalf("unexpected extra keys: %#v", body)
			}
		})
	}
}

func TestDispatch_ValidationFields(t *testing.T) {
	sig := failure.NewValidation("Validation failed", map[string][]string{"title": {"field required"}})
	body, status := Dispatch(sig)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", status)
	}
	errs := body["errors"].(map[string]any)
	fields, ok := errs["fields"].(map[string][]string)
	if !ok || fields["title"][0] != "field required" {
		t.Fatalf("fields missing: %#v", errs)
	}
}

func TestDispatch_UnknownParameters(t *testing.T) {
	body, status := Dispatch(failure.NewUnknownParameters([]string{"isbn", "id"}))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	errs := body["errors"].(map[string]any)
	got, ok := errs["unknown_parameters"].([]string)
	if !ok || len(got) != 2 || got[0] != "id" || got[1] != "isbn" {
		t.Fatalf("unknown_parameters = %#v", errs["unknown_parameters"])
	}
	if errs["message"] != failure.UnknownParametersMessage {
		t.Fatalf("message = %v", errs["message"])
	}
	if _, ok := errs["fields"]; ok {
		t.Fatalf("fields should be omitted")
	}
}

func TestFail_ClassifiesAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		Fail(c, errors.New("db exploded at /var/lib/app.db"))
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, failure.NewNotFound("Book", 999))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Errors.Message != failure.InternalMessage || body.Timestamp == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "exploded") {
		t.Fatalf("expected error log with cause, got: %s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	body = ErrorBody{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Errors.Message != "Book with identifier '999' not found" {
		t.Fatalf("unexpected message: %q", body.Errors.Message)
	}
}

func TestJSON_And_NoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { JSON(c, http.StatusCreated, map[string]any{"ok": true}) })
	r.DELETE("/gone", func(c *gin.Context) { NoContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got["ok"] != true || got["timestamp"] == nil {
		t.Fatalf("unexpected body: %#v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", w.Code, w.Body.String())
	}
}
