package scanner

import "errors"

var (
	// ErrInvalidWorkerCount is returned when fewer than one worker is requested.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrBufferSizeMismatch is returned when the buffer is shorter than the claimed file size.
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
	// ErrEmptyBuffer is returned only when the caller requires non-empty input.
	ErrEmptyBuffer = errors.New("empty buffer")
	// ErrEmptyRegistry is returned when a registry would hold no signatures.
	ErrEmptyRegistry = errors.New("empty signature registry")
	// ErrInvalidSignature covers empty names, empty or malformed patterns and duplicates.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnknownEngine is returned for an engine name that is not registered.
	ErrUnknownEngine = errors.New("unknown engine")
)
