package repository

import (
	"context"
	"image"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage validates, downloads and decodes the image at location
	FetchImage(ctx context.Context, location string) (*FetchedImage, error)

	// DecodeUpload decodes an image received in a request body
	DecodeUpload(data []byte, contentType, name string) (*FetchedImage, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(location string) error
}

// ImageMetadata describes where an image came from and how it was encoded.
// It is attached to results for display only.
type ImageMetadata struct {
	Source        string `json:"source"`
	ContentType   string `json:"contentType,omitempty"`
	ContentLength int64  `json:"contentLength"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
}

// FetchedImage is a decoded image together with its metadata.
type FetchedImage struct {
	Image    image.Image
	Data     []byte
	Metadata ImageMetadata
}
