package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-books-backend/internal/failure"
)

// ErrorBody documents the error envelope for OpenAPI. Handlers never build it
// directly; Dispatch produces the equivalent map.
type ErrorBody struct {
	Errors    ErrorDetail `json:"errors"`
	Timestamp string      `json:"timestamp" example:"2025-01-02T03:04:05.123456Z"`
}

// ErrorDetail is the nested "errors" object of ErrorBody.
type ErrorDetail struct {
	Message string              `json:"message" example:"Book with identifier '999' not found"`
	Fields  map[string][]string `json:"fields,omitempty"`
	// UnknownParameters lists rejected parameter names on 400 responses.
	UnknownParameters []string `json:"unknown_parameters,omitempty" example:"id"`
}

// ErrorPayload returns the un-stamped error payload for msg.
func ErrorPayload(msg string) map[string]any {
	return map[string]any{"errors": map[string]any{"message": msg}}
}

// Dispatch renders sig as an error envelope and its status code. A nil signal
// is treated as an unclassified failure.
func Dispatch(sig *failure.Signal) (map[string]any, int) {
	if sig == nil {
		sig = failure.Internal(nil)
	}
	errs := map[string]any{"message": sig.Message()}
	if fields := sig.Fields(); fields != nil {
		errs["fields"] = fields
	}
	if unknown := sig.UnknownParameters(); unknown != nil {
		errs["unknown_parameters"] = unknown
	}
	return Build(map[string]any{"errors": errs}, sig.StatusCode())
}

// Fail classifies err, logs it, and aborts the request with the matching
// envelope. Server errors are logged with the underlying cause; client errors
// only at debug level.
func Fail(c *gin.Context, err error) {
	sig := failure.Classify(err)
	if sig == nil {
		sig = failure.Internal(nil)
	}

	lg := zerolog.Ctx(c.Request.Context())
	if sig.StatusCode() >= http.StatusInternalServerError {
		lg.Error().
			Err(err).
			Int("status", sig.StatusCode()).
			Str("kind", sig.Kind().String()).
			Msg("api error")
		if err != nil {
			_ = c.Error(err)
		}
	} else {
		lg.Debug().
			Int("status", sig.StatusCode()).
			Str("kind", sig.Kind().String()).
			Str("message", sig.Message()).
			Msg("api failure")
	}

	body, status := Dispatch(sig)
	c.AbortWithStatusJSON(status, body)
}
