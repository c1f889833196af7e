package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Classification failures surfaced to callers of the engine.
	ErrInsufficientData     = errors.New("insufficient training data")
	ErrEmptyInput           = errors.New("input has no terms")
	ErrModelNotFound        = errors.New("model not found")
	ErrUnsupportedModelType = errors.New("unsupported model type")
	ErrCorruptModelRecord   = errors.New("corrupt model record")
)
