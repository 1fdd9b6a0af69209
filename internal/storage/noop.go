package storage

import "context"

// NoopUploader é usado quando STORAGE_PROVIDER não aponta para um backend.
type NoopUploader struct{}

// Upload sempre retorna ErrNotConfigured.
func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, ErrNotConfigured
}
