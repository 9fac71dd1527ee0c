package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const MaxUploadSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("only images can be uploaded")
	ErrFileTooLarge    = errors.New("file exceeds the upload limit")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

type ObjectStore interface {
	Upload(ctx context.Context, folder, fileName, contentType string, body io.Reader) (string, error)
}

type UploadService struct {
	store ObjectStore
}

// NewUploadService accepts a nil store; uploads then fail with ErrStorageDisabled.
func NewUploadService(store ObjectStore) *UploadService {
	return &UploadService{store: store}
}

// UploadImage stores an image and returns its public URL.
func (s *UploadService) UploadImage(ctx context.Context, folder, fileName, contentType string, size int64, body io.Reader) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return "", ErrUnsupportedType
	}
	if size > MaxUploadSize {
		return "", ErrFileTooLarge
	}

	url, err := s.store.Upload(ctx, folder, fileName, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}
	return url, nil
}
