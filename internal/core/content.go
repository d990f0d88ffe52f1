package core

import "strings"

// Content type codes. Text codes render inline, binary codes resolve through
// the binaries table.
const (
	TypeText     = 1
	TypeHTML     = 2
	TypeMarkdown = 3
	TypePNG      = 10
	TypePDF      = 21
)

const binaryRefPrefix = "binary:"

// ContentTypeFor maps a content type code to the MIME type served for it.
// Unknown text codes fall back to text/plain, unknown binary payloads to
// application/octet-stream via BinaryContentTypeFor.
func ContentTypeFor(typeCode int) string {
	switch typeCode {
	case TypeText:
		return "text/plain"
	case TypeHTML:
		return "text/html"
	case TypeMarkdown:
		return "text/markdown"
	case TypePNG:
		return "image/png"
	case TypePDF:
		return "application/pdf"
	default:
		return "text/plain"
	}
}

// BinaryContentTypeFor is ContentTypeFor restricted to payloads stored in the
// binaries table.
func BinaryContentTypeFor(typeCode int) string {
	switch typeCode {
	case TypePNG:
		return "image/png"
	case TypePDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// BinaryRef reports whether a content value is a reference into the binaries
// table and returns the referenced ID.
func BinaryRef(value string) (string, bool) {
	if !strings.HasPrefix(value, binaryRefPrefix) {
		return "", false
	}
	return value[len(binaryRefPrefix):], true
}

// NewBinaryRef builds the content value that points at a binaries row.
func NewBinaryRef(id string) string {
	return binaryRefPrefix + id
}
