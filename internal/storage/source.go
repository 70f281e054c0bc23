// Package storage fetches encoded images from remote and local sources.
package storage

import (
	"context"
	"fmt"
	"io"
)

// DefaultMaxImageBytes caps a single download.
const DefaultMaxImageBytes = 32 << 20

// Object is an encoded image and what the source reported about it.
type Object struct {
	Data        []byte
	ContentType string
	Location    string
}

// ImageSource fetches encoded image bytes from a location.
type ImageSource interface {
	Fetch(ctx context.Context, location string) (*Object, error)
}

// readLimited reads at most max bytes and fails if r holds more.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("image exceeds %d bytes", max)
	}
	return data, nil
}
