package errs

import "errors"

var (
	// ingestion
	ErrEmptyDocument     = errors.New("document is empty")
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// index
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrIndexCorrupt      = errors.New("index files corrupt")
	ErrIndexUnavailable  = errors.New("index not loaded")

	// generation
	ErrGenerationTimeout     = errors.New("generation timed out")
	ErrGenerationUnavailable = errors.New("generation service unreachable")

	// webhook
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// outbound dispatch
	ErrDispatchFailed = errors.New("message dispatch failed")
)

func IsGenerationFailure(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) || errors.Is(err, ErrGenerationUnavailable)
}
