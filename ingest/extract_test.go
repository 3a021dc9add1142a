package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestSupportedMimeType(t *testing.T) {
	supported := []string{
		"application/vnd.google-apps.document",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"text/markdown",
		"text/csv",
	}
	for _, mt := range supported {
		if !SupportedMimeType(mt) {
			t.Errorf("expected %q to be supported", mt)
		}
	}
	for _, mt := range []string{"image/png", "video/mp4", "application/vnd.google-apps.spreadsheet", ""} {
		if SupportedMimeType(mt) {
			t.Errorf("expected %q to be unsupported", mt)
		}
	}
}

func TestReadAllLimitedWithinLimit(t *testing.T) {
	data, err := readAllLimited(strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected full read, got %q", data)
	}
}

func TestReadAllLimitedExactLimit(t *testing.T) {
	data, err := readAllLimited(strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatalf("a read at exactly the limit must succeed: %v", err)
	}
	if len(data) != 5 {
		t.Errorf("expected 5 bytes, got %d", len(data))
	}
}

func TestReadAllLimitedOverLimit(t *testing.T) {
	_, err := readAllLimited(strings.NewReader("123456"), 5)
	if err == nil {
		t.Fatal("expected size error")
	}
	var sizeErr *sizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected sizeExceededError, got %T", err)
	}
}

func TestExtractTextPlainFormats(t *testing.T) {
	for _, mt := range []string{"text/plain", "text/markdown", "text/csv", "application/vnd.google-apps.document"} {
		got, err := extractText(mt, []byte("raw body"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", mt, err)
		}
		if got != "raw body" {
			t.Errorf("%s: expected passthrough, got %q", mt, got)
		}
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	if _, err := extractText("image/png", []byte("x")); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestDocxXMLToText(t *testing.T) {
	xmlBody := `<w:document><w:body>` +
		`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	got, err := docxXMLToText(xmlBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph.\nSecond paragraph.\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDocxXMLToTextMalformed(t *testing.T) {
	if _, err := docxXMLToText("<w:p>unclosed"); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}
