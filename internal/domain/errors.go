package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey     = errors.New("api key is not set")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrMalformedResponse = errors.New("invalid response structure")
	ErrNoImage           = errors.New("no image in response")
)

// MalformedResponseError reports which expected field of a generation
// response was missing. It matches ErrMalformedResponse with errors.Is.
type MalformedResponseError struct {
	Field       string
	BlockReason string
	Err         error
}

func (e *MalformedResponseError) Error() string {
	var msg string
	switch {
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Field, e.Err)
	default:
		msg = fmt.Sprintf("%s: missing %s", ErrMalformedResponse, e.Field)
	}
	if e.BlockReason != "" {
		msg += " (prompt blocked: " + e.BlockReason + ")"
	}
	return msg
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
