package repository

import (
	"context"
	"errors"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/storage"
	"github.com/anime-shed/ai-detector-go/pkg/validation"
)

// SourceImageRepository implements ImageRepository over a remote source and
// an optional local one.
type SourceImageRepository struct {
	remote    storage.ImageSource
	local     storage.ImageSource
	validator *validation.URLValidator
}

// NewSourceImageRepository creates a repository. local may be nil, in which
// case file URLs are rejected.
func NewSourceImageRepository(remote, local storage.ImageSource, validator *validation.URLValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	if local != nil {
		validator.WithLocalFiles()
	}
	return &SourceImageRepository{
		remote:    remote,
		local:     local,
		validator: validator,
	}
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *SourceImageRepository) ValidateImageURL(location string) error {
	return r.validator.ValidateImageURL(location)
}

// FetchImage retrieves and decodes an image
func (r *SourceImageRepository) FetchImage(ctx context.Context, location string) (*FetchedImage, error) {
	if err := r.ValidateImageURL(location); err != nil {
		return nil, err
	}

	source := r.remote
	if isFileURL(location) {
		if r.local == nil {
			return nil, apperrors.NewValidationError("file URLs are not enabled", ErrLocalDisabled)
		}
		source = r.local
	}

	obj, err := source.Fetch(ctx, location)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewTimeoutError("image fetch timed out", err)
		case errors.Is(err, storage.ErrClientStatus):
			return nil, apperrors.NewNotFoundError("image not available", err)
		}
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}

	return r.decode(obj.Data, obj.ContentType, location)
}

// DecodeUpload decodes an uploaded image
func (r *SourceImageRepository) DecodeUpload(data []byte, contentType, name string) (*FetchedImage, error) {
	return r.decode(data, contentType, "upload:"+name)
}

func (r *SourceImageRepository) decode(data []byte, contentType, source string) (*FetchedImage, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("image is empty", ErrEmptyImage)
	}
	img, format, err := storage.Decode(data)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported or corrupt image", err)
	}
	b := img.Bounds()
	return &FetchedImage{
		Image: img,
		Data:  data,
		Metadata: ImageMetadata{
			Source:        source,
			ContentType:   contentType,
			ContentLength: int64(len(data)),
			Width:         b.Dx(),
			Height:        b.Dy(),
			Format:        strings.ToUpper(format),
		},
	}, nil
}

func isFileURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && u.Scheme == "file"
}
