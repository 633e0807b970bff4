package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces", "lab results 2024.pdf", "lab_results_2024.pdf"},
		{"unicode", "čaj.png", "_aj.png"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\ana\scan.jpg`, "scan.jpg"},
		{"empty", "", "file"},
		{"dots only", "..", "file"},
		{"keeps dash and underscore", "a-b_c.txt", "a-b_c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestSanitizeFileName_CapsLength(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("a", 400) + ".txt")
	assert.Len(t, got, 255)
}

func TestObjectKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "user-1/1700000000123-my_photo.jpg", ObjectKey("user-1", at, "my photo.jpg"))
	assert.Equal(t, "user-1/1700000000123-my_photo.jpg.preview.jpg", PreviewKey(ObjectKey("user-1", at, "my photo.jpg")))
}

func TestParseDisposition(t *testing.T) {
	d, err := ParseDisposition("")
	require.NoError(t, err)
	assert.Equal(t, DispositionDownload, d)

	d, err = ParseDisposition("Preview")
	require.NoError(t, err)
	assert.Equal(t, DispositionPreview, d)

	_, err = ParseDisposition("stream")
	assert.Error(t, err)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename=scan.pdf`, ContentDisposition(DispositionDownload, "scan.pdf"))
	assert.Equal(t, `inline; filename="my scan.pdf"`, ContentDisposition(DispositionPreview, "my scan.pdf"))
	assert.Equal(t, "attachment", ContentDisposition(DispositionDownload, ""))
}

func TestInlineSafe(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"IMAGE/JPEG", true},
		{"application/pdf", true},
		{"text/html; charset=utf-8", false},
		{"image/svg+xml", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, InlineSafe(tt.contentType))
		})
	}
}
