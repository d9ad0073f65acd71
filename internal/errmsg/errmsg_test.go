package errmsg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type coded struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type opaque struct {
	Code int `json:"code"`
}

type withMethod struct{}

func (withMethod) Message() string { return "from method" }

type unserializable struct {
	Ch chan int
}

type panicky struct{}

func (panicky) Error() string { panic("boom") }

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: "unknown error"},
		{name: "error", in: errors.New("Failed summary: Not Found (404)"), want: "Failed summary: Not Found (404)"},
		{name: "message method", in: withMethod{}, want: "from method"},
		{name: "string", in: "plain text", want: "plain text"},
		{name: "struct message field", in: coded{Message: "quota exceeded", Code: 429}, want: "quota exceeded"},
		{name: "map message key", in: map[string]any{"message": "from map"}, want: "from map"},
		{name: "serialized", in: opaque{Code: 7}, want: `{"code":7}`},
		{name: "number", in: 42, want: "42"},
		{name: "non-string message is serialized", in: map[string]any{"message": 3}, want: `{"message":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.in))
		})
	}
}

func TestMessage_Fallbacks(t *testing.T) {
	// json.Marshal fails on channels, so the generic formatting is used.
	got := Message(unserializable{Ch: make(chan int)})
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "{")

	// A value whose Error method panics still yields a message.
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, Message(panicky{}))
	})
}

func TestFromPanic(t *testing.T) {
	base := errors.New("index out of range")
	err := FromPanic(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "panic: index out of range", err.Error())

	assert.Equal(t, "panic: bad state", FromPanic("bad state").Error())
}
