package clist

import (
	"errors"
	"fmt"
)

// ErrNoResourceIDs is returned when a contest listing is requested for no resources
var ErrNoResourceIDs = errors.New("no resource IDs provided")

// maxBodyInError limits how much of a response body ends up in an error message
const maxBodyInError = 512

// Kind categorizes a failed API request
type Kind int

const (
	// KindNetwork is a transport failure before a complete response was read
	KindNetwork Kind = iota + 1
	// KindStatus is a response with a status other than 200 OK
	KindStatus
	// KindDecode is a 200 OK response whose body is not the expected JSON
	KindDecode
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError describes a failed API request
type RequestError struct {
	// Op names the operation, e.g. "resource fetch" or "contest fetch"
	Op   string
	Kind Kind

	// StatusCode and Body are set for KindStatus and KindDecode
	StatusCode int
	Body       string

	Err error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, truncateBody(e.Body))
	case KindDecode:
		return fmt.Sprintf("%s: invalid JSON response: %v (body: %s)", e.Op, e.Err, truncateBody(e.Body))
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a RequestError of the given kind
func IsKind(err error, kind Kind) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == kind
}

func truncateBody(body string) string {
	if len(body) <= maxBodyInError {
		return body
	}
	return body[:maxBodyInError] + "..."
}
