// Package ingest implements the document ingestion pipeline: listing
// Drive files, extracting text per format under a byte ceiling, chunking,
// embedding in batches, and persisting vectors. A Syncer drives the same
// pipeline incrementally from the Drive changes feed.
//
// Information Hiding:
// - Extraction formats and buffer limits are internal to the package
// - Chunk window and overlap tuning is hidden behind ChunkText
// - The pipeline reports per-file faults in its result, never as errors

package ingest

import "strings"

const (
	// chunkSize is the window length in characters.
	chunkSize = 3500
	// chunkOverlap is how many trailing characters each chunk shares
	// with the next.
	chunkOverlap = 400
)

// ChunkText splits text into overlapping fixed-size chunks. Windows that
// are not the final chunk are trimmed back to the last space, but only
// when that space falls past the window midpoint, so a pathological
// unbroken run still produces full-size chunks.
func ChunkText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[start:end]

		if end < len(runes) {
			if cut := lastSpace(window); cut > chunkSize/2 {
				window = window[:cut+1]
			}
		}

		chunks = append(chunks, string(window))
		if end >= len(runes) {
			break
		}
		start += len(window) - chunkOverlap
	}
	return chunks
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
