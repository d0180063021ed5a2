package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned before any request is made when the prompt is blank.
var ErrEmptyPrompt = errors.New("prompt is required")

// UpstreamKind classifies how the generation backend failed.
type UpstreamKind string

const (
	// UpstreamUnreachable: the request never produced an HTTP response (dial error, timeout).
	UpstreamUnreachable UpstreamKind = "unreachable"
	// UpstreamStatus: the backend answered with a non-2xx status.
	UpstreamStatus UpstreamKind = "status"
	// UpstreamPayload: the backend answered 2xx but the body is not a usable image list.
	UpstreamPayload UpstreamKind = "payload"
)

// UpstreamError describes a failed exchange with the generation backend.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case UpstreamStatus:
		return fmt.Sprintf("Local API error: %s", e.Status)
	case UpstreamUnreachable:
		if e.Err != nil {
			return fmt.Sprintf("Local API request failed: %v", e.Err)
		}
		return "Local API request failed"
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func payloadError(message string, err error) *UpstreamError {
	return &UpstreamError{Kind: UpstreamPayload, Message: message, Err: err}
}
