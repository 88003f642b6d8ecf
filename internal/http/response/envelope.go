// Package response renders every JSON body the service sends.
//
// This file holds the envelope builder: success and error payloads alike are
// copied into a fresh map and stamped with a UTC "timestamp" field, so the
// wire format has a single point of truth.
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "id": 1, "title": "Title One", "author": "Author One",
//	  "category": "science", "timestamp": "2025-01-02T03:04:05.123456Z" }
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{ "errors": { "message": "Book with identifier '999' not found" },
//	  "timestamp": "2025-01-02T03:04:05.123456Z" }
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TimestampKey is the envelope field carrying the response time.
const TimestampKey = "timestamp"

// now is the clock used for timestamps; tests replace it.
var now = time.Now

// Timestamp returns the current time as an RFC 3339 UTC string.
func Timestamp() string {
	return now().UTC().Format(time.RFC3339Nano)
}

// Build returns payload plus a timestamp field. The input map is not
// modified, and status is returned unchanged.
func Build(payload map[string]any, status int) (map[string]any, int) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body[TimestampKey] = Timestamp()
	return body, status
}

// JSON writes payload through the envelope builder with the given status.
func JSON(c *gin.Context, status int, payload map[string]any) {
	body, code := Build(payload, status)
	c.JSON(code, body)
}

// NoContent writes an HTTP 204 with no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
