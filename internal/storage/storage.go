// Package storage keeps attachment blobs out of the database. Rows only carry
// the object key; bytes live in one of the Store backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("object not found")
	ErrForbidden = errors.New("storage access forbidden")
)

type Disposition string

const (
	DispositionDownload Disposition = "download"
	DispositionPreview  Disposition = "preview"
)

// ParseDisposition defaults to download for empty input.
func ParseDisposition(s string) (Disposition, error) {
	switch Disposition(strings.ToLower(strings.TrimSpace(s))) {
	case "", DispositionDownload:
		return DispositionDownload, nil
	case DispositionPreview:
		return DispositionPreview, nil
	default:
		return "", fmt.Errorf("unknown disposition %q", s)
	}
}

// URLOptions controls a signed URL. FileName is suggested to the browser for
// downloads.
type URLOptions struct {
	TTL         time.Duration
	Disposition Disposition
	FileName    string
}

type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is an attachment blob backend. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, opts URLOptions) (string, error)
}

const maxFileNameLen = 255

// SanitizeFileName strips directory components and replaces every rune
// outside [A-Za-z0-9._-] with '_'.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if len(out) > maxFileNameLen {
		out = out[:maxFileNameLen]
	}
	if strings.Trim(out, ".") == "" {
		return "file"
	}
	return out
}

// ObjectKey builds "{uploader}/{unixMillis}-{sanitized name}".
func ObjectKey(uploader string, now time.Time, fileName string) string {
	return fmt.Sprintf("%s/%d-%s", uploader, now.UnixMilli(), SanitizeFileName(fileName))
}

// PreviewKey is where the generated thumbnail for key is stored.
func PreviewKey(key string) string {
	return key + ".preview.jpg"
}

var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/bmp":       true,
	"application/pdf": true,
}

// InlineSafe reports whether contentType may be rendered inline from the API
// origin. Anything that can carry script (HTML, SVG, XML) is downloaded.
func InlineSafe(contentType string) bool {
	base, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	return inlineTypes[strings.TrimSpace(base)]
}

// ContentDisposition renders the header value for d.
func ContentDisposition(d Disposition, fileName string) string {
	kind := "attachment"
	if d == DispositionPreview {
		kind = "inline"
	}
	if fileName == "" {
		return kind
	}
	return mime.FormatMediaType(kind, map[string]string{"filename": fileName})
}
