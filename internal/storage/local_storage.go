package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileSource reads images beneath a root directory.
type LocalFileSource struct {
	root     string
	maxBytes int64
}

// NewLocalFileSource serves files under root.
func NewLocalFileSource(root string, maxBytes int64) (*LocalFileSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve image root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("image root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image root %s is not a directory", abs)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &LocalFileSource{root: abs, maxBytes: maxBytes}, nil
}

// Resolve maps a file:// URL or relative path to a path inside the root.
func (s *LocalFileSource) Resolve(location string) (string, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		p = u.Path
	}
	p = strings.TrimPrefix(filepath.Clean("/"+p), "/")
	full := filepath.Join(s.root, p)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes image root", location)
	}
	return full, nil
}

// Fetch reads the file named by location.
func (s *LocalFileSource) Fetch(ctx context.Context, location string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Resolve(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f, s.maxBytes)
	if err != nil {
		return nil, err
	}
	return &Object{
		Data:        data,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Location:    location,
	}, nil
}
