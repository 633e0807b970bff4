package storage

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vedran77/careteam/internal/domain"
)

const octetStream = "application/octet-stream"

// sniffLen is how many leading bytes DetectMIME looks at.
const sniffLen = 3072

var documentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/rtf",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument",
	"application/vnd.oasis.opendocument",
	"text/",
}

// DetectMIME sniffs content. When sniffing finds nothing better than
// octet-stream the file extension decides, then the client's declared type.
func DetectMIME(head []byte, fileName, declared string) string {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	detected := mimetype.Detect(head)
	if !detected.Is(octetStream) {
		return detected.String()
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		return byExt
	}
	if declared != "" && declared != octetStream {
		return declared
	}
	return octetStream
}

// ClassifyFileType buckets a MIME type into the attachment file types.
func ClassifyFileType(mimeType string) domain.FileType {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	base = strings.TrimSpace(base)

	if strings.HasPrefix(base, "image/") {
		return domain.FileTypeImage
	}
	for _, prefix := range documentTypes {
		if strings.HasPrefix(base, prefix) {
			return domain.FileTypeDocument
		}
	}
	return domain.FileTypeOther
}
