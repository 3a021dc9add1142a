package ingest

import (
	"strings"
	"testing"
)

func TestChunkTextEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if got := ChunkText(input); len(got) != 0 {
			t.Errorf("ChunkText(%q): expected no chunks, got %d", input, len(got))
		}
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("hello world")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Errorf("expected input unchanged, got %q", chunks[0])
	}
}

func TestChunkTextTrimsSurroundingWhitespace(t *testing.T) {
	chunks := ChunkText("  padded text \n")
	if len(chunks) != 1 || chunks[0] != "padded text" {
		t.Errorf("expected trimmed single chunk, got %v", chunks)
	}
}

func TestChunkTextWindowAndOverlap(t *testing.T) {
	// Repeating ten-character words gives predictable space positions.
	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 1000)) // 9999 chars

	chunks := ChunkText(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for %d chars, got %d", len(text), len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > chunkSize {
			t.Errorf("chunk %d exceeds window: %d chars", i, len(chunk))
		}
		if i < len(chunks)-1 {
			if !strings.HasSuffix(chunk, " ") {
				t.Errorf("chunk %d should end on a word boundary, got tail %q", i, chunk[len(chunk)-10:])
			}
			if len(chunk) <= chunkSize/2 {
				t.Errorf("chunk %d suspiciously short: %d chars", i, len(chunk))
			}
		}
	}
}

func TestChunkTextOverlapProperty(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 1000))
	chunks := ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each chunk's final overlap region must reappear at the start of
	// the next chunk.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-chunkOverlap:]
		if !strings.HasPrefix(chunks[i+1], tail) {
			t.Errorf("chunk %d does not begin with the previous chunk's overlap", i+1)
		}
	}
}

func TestChunkTextCoversWholeInput(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 1000))
	chunks := ChunkText(text)

	// Reassembling the chunks minus their overlaps must reproduce the
	// original text.
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		b.WriteString(chunk[chunkOverlap:])
	}
	if b.String() != text {
		t.Error("chunks do not reassemble into the original text")
	}
}

func TestChunkTextNoSpaces(t *testing.T) {
	// An unbroken run cannot be trimmed to a word boundary, so windows
	// stay full size.
	text := strings.Repeat("x", chunkSize*2)
	chunks := ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != chunkSize {
		t.Errorf("expected full window for unbroken text, got %d", len(chunks[0]))
	}
}

func TestChunkTextEarlySpaceIgnored(t *testing.T) {
	// A single space before the midpoint must not shrink the window
	// below half size.
	text := "ab cd" + strings.Repeat("x", chunkSize*2)
	chunks := ChunkText(text)
	if len(chunks[0]) != chunkSize {
		t.Errorf("expected full window when only early spaces exist, got %d", len(chunks[0]))
	}
}
