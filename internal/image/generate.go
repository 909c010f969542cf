package image

import (
	"context"
	"errors"
	"fmt"
)

type Params struct {
	Prompt string
	Key    string
	Count  int
}

// Generator produces encoded raster images for a prompt. Implementations make
// exactly one attempt; retry policy belongs to callers, if anywhere.
type Generator interface {
	Generate(context.Context, Params) ([][]byte, error)
}

type ErrorKind int

const (
	// KindTransport covers failures before any HTTP status was received.
	KindTransport ErrorKind = iota
	// KindServiceRejected covers non-2xx responses from the service.
	KindServiceRejected
	// KindEmptyResult means the service answered but produced no usable image.
	KindEmptyResult
)

// Error carries the most specific human-readable message available, preferring
// whatever the service itself said over our generic fallbacks.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of a generation error, or KindTransport and false
// when err is not a generation error at all.
func KindOf(err error) (ErrorKind, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return KindTransport, false
}
