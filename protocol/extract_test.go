package protocol

import "testing"

func TestExtractCandidatePureJSON(t *testing.T) {
	in := `{"type":"tool_call"}`
	if got := extractCandidate(in); got != in {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func TestExtractCandidateFencedWithTag(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := extractCandidate(in); got != `{"a":1}` {
		t.Errorf("expected fenced content, got %q", got)
	}
}

func TestExtractCandidateFencedWithoutTag(t *testing.T) {
	in := "```\n{\"a\":1}\n```"
	if got := extractCandidate(in); got != `{"a":1}` {
		t.Errorf("expected fenced content, got %q", got)
	}
}

func TestExtractCandidateBraceSpan(t *testing.T) {
	in := `prefix {"a":1} suffix`
	if got := extractCandidate(in); got != `{"a":1}` {
		t.Errorf("expected brace span, got %q", got)
	}
}

func TestExtractCandidateNoBraces(t *testing.T) {
	in := "  just text  "
	if got := extractCandidate(in); got != "just text" {
		t.Errorf("expected trimmed input, got %q", got)
	}
}

func TestExtractCandidatePrefersFenceOverBraces(t *testing.T) {
	in := "{not json} ```json\n{\"a\":1}\n``` trailing"
	if got := extractCandidate(in); got != `{"a":1}` {
		t.Errorf("expected fenced content to win, got %q", got)
	}
}
