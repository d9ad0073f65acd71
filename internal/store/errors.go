package store

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// StatusError reports a non-2xx response from the store.
type StatusError struct {
	// What names the document kind, e.g. "summary" or "runs index".
	What       string
	StatusCode int
	StatusText string
	// Detail is the message carried by a JSON error body, if any.
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("Failed %s: %s (%d)", e.What, e.StatusText, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func newStatusError(what string, resp *http.Response, body []byte) *StatusError {
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	}
	return &StatusError{
		What:       what,
		StatusCode: resp.StatusCode,
		StatusText: text,
		Detail:     bodyDetail(body),
	}
}

// bodyDetail pulls a message out of common JSON error shapes:
// {"message": "..."} and {"error": {"message": "..."}}.
func bodyDetail(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error.message", "message", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}
