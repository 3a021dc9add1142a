package ingest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// MaxFileBytes is the default per-file ceiling. Files declaring a larger
// size are rejected up front, and streamed reads that cross the ceiling
// are aborted mid-transfer.
const MaxFileBytes = 50 * 1024 * 1024

const (
	mimeGoogleDoc = "application/vnd.google-apps.document"
	mimePDF       = "application/pdf"
	mimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText      = "text/plain"
	mimeMarkdown  = "text/markdown"
	mimeCSV       = "text/csv"
)

// supportedMimeTypes is the ingestion allow-list.
var supportedMimeTypes = map[string]bool{
	mimeGoogleDoc: true,
	mimePDF:       true,
	mimeDOCX:      true,
	mimeText:      true,
	mimeMarkdown:  true,
	mimeCSV:       true,
}

// SupportedMimeType reports whether the pipeline can extract text from
// files of the given type.
func SupportedMimeType(mimeType string) bool {
	return supportedMimeTypes[mimeType]
}

// sizeExceededError marks reads aborted for crossing the byte ceiling.
type sizeExceededError struct {
	limit int64
}

func (e *sizeExceededError) Error() string {
	return fmt.Sprintf("file exceeds the %d byte limit", e.limit)
}

// readAllLimited drains r into memory, failing once more than limit bytes
// have been read. The underlying transfer is abandoned at that point, so
// a lying Content-Length or an unbounded export stream cannot exhaust
// memory.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, &sizeExceededError{limit: limit}
	}
	return buf.Bytes(), nil
}

// extractText converts raw file bytes into plain text according to the
// file's MIME type. Google Docs arrive already exported as text/plain,
// so they take the plain-text path.
func extractText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case mimePDF:
		return extractPDF(data)
	case mimeDOCX:
		return extractDOCX(data)
	case mimeGoogleDoc, mimeText, mimeMarkdown, mimeCSV:
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}
}

// extractPDF pulls plain text from every page of a PDF.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing PDF: %w", err)
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// extractDOCX reads the document XML out of a DOCX archive and strips the
// markup, inserting newlines at paragraph boundaries.
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing DOCX: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent())
}

func docxXMLToText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))
	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decoding DOCX content: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
