package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/storage"
)

type stubSource struct {
	obj   *storage.Object
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context, location string) (*storage.Object, error) {
	s.calls++
	return s.obj, s.err
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetchImage_DecodesWithMetadata(t *testing.T) {
	data := pngData(t, 70, 55)
	src := &stubSource{obj: &storage.Object{Data: data, ContentType: "image/png"}}
	repo := NewSourceImageRepository(src, nil, nil)

	got, err := repo.FetchImage(context.Background(), "https://example.com/a.png")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	want := ImageMetadata{
		Source:        "https://example.com/a.png",
		ContentType:   "image/png",
		ContentLength: int64(len(data)),
		Width:         70,
		Height:        55,
		Format:        "PNG",
	}
	if got.Metadata != want {
		t.Errorf("Expected %+v, got %+v", want, got.Metadata)
	}
}

func TestFetchImage_ErrorClasses(t *testing.T) {
	tests := []struct {
		name     string
		location string
		err      error
		want     apperrors.ErrorType
	}{
		{"bad url", "ftp://example.com/a.png", nil, apperrors.ErrorTypeValidation},
		{"file disabled", "file:///a.png", nil, apperrors.ErrorTypeValidation},
		{"network", "https://example.com/a.png", errors.New("connection reset"), apperrors.ErrorTypeNetwork},
		{"4xx", "https://example.com/a.png", fmt.Errorf("wrapped: %w", storage.ErrClientStatus), apperrors.ErrorTypeNotFound},
		{"deadline", "https://example.com/a.png", context.DeadlineExceeded, apperrors.ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewSourceImageRepository(&stubSource{err: tt.err}, nil, nil)
			_, err := repo.FetchImage(context.Background(), tt.location)
			if !apperrors.IsType(err, tt.want) {
				t.Errorf("Expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestFetchImage_CorruptData(t *testing.T) {
	src := &stubSource{obj: &storage.Object{Data: []byte("garbage")}}
	repo := NewSourceImageRepository(src, nil, nil)

	_, err := repo.FetchImage(context.Background(), "https://example.com/a.png")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestFetchImage_LocalRouting(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.png"), pngData(t, 60, 60), 0o644); err != nil {
		t.Fatal(err)
	}
	local, err := storage.NewLocalFileSource(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	remote := &stubSource{err: errors.New("remote must not be called")}
	repo := NewSourceImageRepository(remote, local, nil)

	got, err := repo.FetchImage(context.Background(), "file:///a.png")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if got.Metadata.Width != 60 || remote.calls != 0 {
		t.Errorf("Expected local fetch of 60px image, got width %d, remote calls %d", got.Metadata.Width, remote.calls)
	}
}

func TestDecodeUpload(t *testing.T) {
	repo := NewSourceImageRepository(&stubSource{}, nil, nil)

	got, err := repo.DecodeUpload(pngData(t, 64, 64), "image/png", "x.png")
	if err != nil {
		t.Fatalf("DecodeUpload: %v", err)
	}
	if got.Metadata.Source != "upload:x.png" {
		t.Errorf("Unexpected source %q", got.Metadata.Source)
	}

	if _, err := repo.DecodeUpload(nil, "", "empty"); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for empty upload, got %v", err)
	}
}
