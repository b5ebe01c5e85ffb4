package service

import (
	"context"
	"io"
)

// Uploader copies files to an external media store and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	Delete(ctx context.Context, folder string, publicID string) error
}
