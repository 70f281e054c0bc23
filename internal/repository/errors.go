package repository

import "errors"

var (
	// ErrLocalDisabled indicates a file URL arrived with no local image root configured
	ErrLocalDisabled = errors.New("local image source not configured")

	// ErrEmptyImage indicates the source returned no bytes
	ErrEmptyImage = errors.New("image is empty")
)
