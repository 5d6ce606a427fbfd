package storage

import (
	"bytes"
	"context"
	"net/http"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

// contentType sniffs data, recognising plain-text pixmaps which
// http.DetectContentType reports as text.
func contentType(data []byte) string {
	if bytes.HasPrefix(data, []byte("P3")) && (len(data) == 2 || isSpace(data[2])) {
		return "image/x-portable-pixmap"
	}
	return http.DetectContentType(data)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
