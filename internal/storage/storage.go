// Package storage receives uploaded cover files and serves them back.
//
// A cover is stored under a flat key such as "cs1v2k0d0h9s73b6l4r0.png".
// Keys are generated by the caller (see NewKey) and never contain a path
// separator, so a key can be used directly as a file name or object name.
// Two backends implement FileStorage: Disk (default, files under a local
// directory) and Minio (an S3-compatible bucket).
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/rs/xid"
)

// FileStorage is the Upload Receiver contract.
type FileStorage interface {
	// Save stores size bytes read from r under key.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns the stored content. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the object stored under key.
	Remove(ctx context.Context, key string) error
}

// PublicPrefix is prepended to a key to form the path stored on a post and
// served by the /uploads route.
const PublicPrefix = "uploads/"

var (
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrInvalidKey     = errors.New("storage: invalid key")
)

// maxExtLength bounds the extension kept from a client-supplied file name.
const maxExtLength = 10

// Extension returns the part of name after its last dot, case preserved.
// It returns "" when name has no dot, when the extension is empty or too
// long, or when it contains anything other than letters and digits.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	ext := name[i+1:]
	if ext == "" || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}

// NewKey returns a fresh collision-free key for a file originally called
// originalName, keeping its extension.
func NewKey(originalName string) string {
	key := xid.New().String()
	if ext := Extension(originalName); ext != "" {
		key += "." + ext
	}
	return key
}

// PublicPath returns the path a post stores for key.
func PublicPath(key string) string {
	return PublicPrefix + key
}

// ValidKey reports whether key is safe to hand to a backend: non-empty,
// no separators, not a dot path.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
