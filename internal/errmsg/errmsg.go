// Package errmsg turns arbitrary failure values into a human-readable message.
//
// Message never panics and always returns a non-empty string. It tries, in order:
// the value's own message (error, Message() string, or a string "message" field),
// its JSON serialization, and finally fmt formatting.
package errmsg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type messager interface {
	Message() string
}

// Message extracts the best available message from v.
func Message(v any) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fallback(v)
		}
	}()

	switch t := v.(type) {
	case nil:
		return "unknown error"
	case error:
		if s := t.Error(); s != "" {
			return s
		}
	case messager:
		if s := t.Message(); s != "" {
			return s
		}
	case string:
		if t != "" {
			return t
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fallback(v)
	}
	if m := gjson.GetBytes(b, "message"); m.Type == gjson.String && m.Str != "" {
		return m.Str
	}
	if s := strings.TrimSpace(string(b)); s != "" && s != "null" && s != `""` {
		return s
	}
	return fallback(v)
}

// FromPanic converts a recovered panic value into an error carrying its message.
func FromPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %s", Message(r))
}

func fallback(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%T", v)
		}
	}()
	s = fmt.Sprint(v)
	if s == "" {
		return fmt.Sprintf("%T", v)
	}
	return s
}
