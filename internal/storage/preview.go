package storage

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	previewMaxSide = 320
	previewQuality = 80
)

// Previewer renders JPEG thumbnails for image attachments.
type Previewer struct {
	maxSide int
}

func NewPreviewer() *Previewer {
	return &Previewer{maxSide: previewMaxSide}
}

// Supports reports whether mimeType can be decoded.
func (p *Previewer) Supports(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// Render decodes data and returns a JPEG no larger than maxSide on either edge.
// Images that already fit are re-encoded without scaling.
func (p *Previewer) Render(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var thumb image.Image = img
	b := img.Bounds()
	if b.Dx() > p.maxSide || b.Dy() > p.maxSide {
		thumb = imaging.Fit(img, p.maxSide, p.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
