package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectMIME(t *testing.T) {
	unsniffable := []byte{0x00, 0x01, 0x02, 0x03}
	tests := []struct {
		name     string
		head     []byte
		fileName string
		declared string
		want     string
	}{
		{"sniffed beats declared", pngBytes(t, 4, 4), "x.bin", "application/octet-stream", "image/png"},
		{"pdf", []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj"), "scan", "", "application/pdf"},
		{"text", []byte("blood pressure 120/80"), "", "", "text/plain; charset=utf-8"},
		{"extension fallback", unsniffable, "photo.PNG", "application/octet-stream", "image/png"},
		{"extension before declared", unsniffable, "report.pdf", "application/x-custom", "application/pdf"},
		{"declared fallback", unsniffable, "blob", "application/x-custom", "application/x-custom"},
		{"nothing known", unsniffable, "blob", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.head, tt.fileName, tt.declared))
		})
	}
}

func TestClassifyFileType(t *testing.T) {
	tests := []struct {
		mime string
		want domain.FileType
	}{
		{"image/png", domain.FileTypeImage},
		{"IMAGE/JPEG", domain.FileTypeImage},
		{"application/pdf", domain.FileTypeDocument},
		{"text/plain; charset=utf-8", domain.FileTypeDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", domain.FileTypeDocument},
		{"application/zip", domain.FileTypeOther},
		{"video/mp4", domain.FileTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFileType(tt.mime))
		})
	}
}

func TestPreviewer_Render(t *testing.T) {
	p := NewPreviewer()
	assert.True(t, p.Supports("image/png"))
	assert.False(t, p.Supports("image/svg+xml"))
	assert.False(t, p.Supports("application/pdf"))

	out, err := p.Render(pngBytes(t, 1000, 500))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 160, cfg.Height)

	small, err := p.Render(pngBytes(t, 40, 20))
	require.NoError(t, err)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	_, err = p.Render([]byte("not an image"))
	assert.Error(t, err)
}
