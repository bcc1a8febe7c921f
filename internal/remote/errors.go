package remote

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Unreachable covers transport failures: no response, network errors,
	// and non-2xx answers without an API envelope.
	Unreachable Kind = iota + 1
	// MalformedResponse is a body that is not the JSON the call required.
	MalformedResponse
	// Application is an explicit {status:"error"} answer.
	Application
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case MalformedResponse:
		return "malformed_response"
	case Application:
		return "application_error"
	default:
		return "unknown"
	}
}

// SyncError classifies a failed gateway call. Message is user facing; for
// Application errors it is the server text verbatim.
type SyncError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a SyncError anywhere in err's chain, or 0.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func IsUnreachable(err error) bool { return KindOf(err) == Unreachable }
func IsMalformed(err error) bool   { return KindOf(err) == MalformedResponse }
func IsApplication(err error) bool { return KindOf(err) == Application }

// UserMessage returns the text to show the user for err.
func UserMessage(err error) string {
	var se *SyncError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
