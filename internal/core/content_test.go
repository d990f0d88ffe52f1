package core

import "testing"

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{TypeText, "text/plain"},
		{TypeHTML, "text/html"},
		{TypeMarkdown, "text/markdown"},
		{TypePNG, "image/png"},
		{TypePDF, "application/pdf"},
		{99, "text/plain"},
	}
	for _, tt := range tests {
		if got := ContentTypeFor(tt.code); got != tt.want {
			t.Errorf("ContentTypeFor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestBinaryContentTypeFor(t *testing.T) {
	if got := BinaryContentTypeFor(TypePNG); got != "image/png" {
		t.Errorf("BinaryContentTypeFor(png) = %q", got)
	}
	if got := BinaryContentTypeFor(TypeText); got != "application/octet-stream" {
		t.Errorf("BinaryContentTypeFor(text) = %q, want octet-stream", got)
	}
}

func TestBinaryRef(t *testing.T) {
	ref := NewBinaryRef("abc-123")

	id, ok := BinaryRef(ref)
	if !ok || id != "abc-123" {
		t.Fatalf("BinaryRef(%q) = %q, %v; want abc-123, true", ref, id, ok)
	}

	if _, ok := BinaryRef("plain text value"); ok {
		t.Error("plain value recognized as a binary reference")
	}
	if _, ok := BinaryRef(""); ok {
		t.Error("empty value recognized as a binary reference")
	}
}
