package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type is the notification kind understood by the display widget.
type Type string

// Notification types.
const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// ErrInvalidType is returned by Request.Validate for an unknown type.
var ErrInvalidType = errors.New("invalid notification type")

// IsValid reports whether t is one of the known types.
func (t Type) IsValid() bool {
	switch t {
	case TypeSuccess, TypeError, TypeWarning, TypeInfo:
		return true
	}
	return false
}

// Request describes one toast. Duration zero means the toast stays until dismissed.
type Request struct {
	Type     Type
	Title    string
	Message  string
	Duration time.Duration
}

// Validate checks the request before it is dispatched on behalf of a caller.
func (r Request) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if r.Duration < 0 {
		return errors.New("notification duration must not be negative")
	}
	return nil
}

// wireRequest is the JSON shape the browser widget receives. Duration is in milliseconds.
type wireRequest struct {
	Type     Type   `json:"type"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration int64  `json:"duration"`
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{
		Type:     r.Type,
		Title:    r.Title,
		Message:  r.Message,
		Duration: r.Duration.Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Request{
		Type:     w.Type,
		Title:    w.Title,
		Message:  w.Message,
		Duration: time.Duration(w.Duration) * time.Millisecond,
	}
	return nil
}

// Content is what the typed helpers accept: a bare Title or full Options.
type Content interface {
	options() Options
}

// Title is shorthand content carrying only a title.
type Title string

func (t Title) options() Options { return Options{Title: string(t)} }

// Options is full content. A nil Duration selects the per-type default.
type Options struct {
	Title    string
	Message  string
	Duration *time.Duration
}

func (o Options) options() Options { return o }

// Duration returns a pointer to d, for use in Options.
func Duration(d time.Duration) *time.Duration {
	return &d
}
