package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store persists uploaded images and returns the public URL they are served from.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.ContainsRune(key, '\\') {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
