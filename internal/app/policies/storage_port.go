package policies

import (
	"context"
	"io"
)

type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoStorage stores property photos and returns their public URL.
type PhotoStorage interface {
	Upload(ctx context.Context, in UploadInput) (string, error)
}
