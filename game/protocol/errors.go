package protocol

import "errors"

var (
	// ErrMalformedPayload reports a request with missing or invalid required fields.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrEncoding reports a response that could not be serialized.
	ErrEncoding = errors.New("encoding error")

	// ErrInvalidDirection reports a direction outside up/down/left/right.
	ErrInvalidDirection = errors.New("invalid direction")
)
