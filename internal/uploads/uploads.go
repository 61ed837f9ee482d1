// Package uploads stores admin image uploads under generated names.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotImage = errors.New("only image files are allowed")
	ErrTooLarge = errors.New("file too large")
	ErrBadName  = errors.New("invalid upload name")
	ErrNotFound = errors.New("upload not found")

	validName = regexp.MustCompile(`^[0-9a-f-]{36}\.[a-z0-9]+$`)
	validExt  = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)
)

const DefaultMaxBytes = 5 << 20

// Storage persists uploaded bytes under a flat name.
type Storage interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// Stored describes a completed upload.
type Stored struct {
	Name string `json:"name"`
	URL  string `json:"file_url"`
}

type Service struct {
	storage  Storage
	baseURL  string
	maxBytes int64
	newName  func(ext string) string
}

func NewService(storage Storage, baseURL string, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		storage:  storage,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		newName: func(ext string) string {
			return uuid.NewString() + "." + ext
		},
	}
}

// Save checks the content type and size, then stores the file as <uuid>.<ext>.
// The extension comes from the client file name and defaults to jpg.
func (s *Service) Save(ctx context.Context, filename, contentType string, r io.Reader) (Stored, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return Stored{}, ErrNotImage
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Stored{}, ErrTooLarge
	}

	name := s.newName(extension(filename))
	if err := s.storage.Put(ctx, name, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return Stored{}, fmt.Errorf("store upload: %w", err)
	}
	return Stored{Name: name, URL: s.baseURL + "/" + name}, nil
}

// Open returns a stored upload by the name handed out by Save.
func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !validName.MatchString(name) {
		return nil, "", ErrBadName
	}
	return s.storage.Open(ctx, name)
}

func extension(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if !validExt.MatchString(ext) {
		return "jpg"
	}
	return strings.ToLower(ext)
}
