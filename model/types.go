// Package model provides domain types shared across packages.
package model

import (
	"encoding/json"
	"time"
)

// StepType discriminates the two kinds of agent steps.
type StepType string

const (
	StepToolCall    StepType = "tool_call"
	StepFinalAnswer StepType = "final_answer"
)

// FinalAnswer is the structured answer the agent terminates with.
type FinalAnswer struct {
	Summary        string   `json:"summary"`
	DetailedAnswer string   `json:"detailed_answer"`
	Sources        []string `json:"sources"`
}

// Step is one iteration of the agent loop: either a tool call with its
// recorded result, or the final answer. Steps are append-only and indexed
// contiguously from 0 within a run.
type Step struct {
	StepIndex     int                        `json:"step_index"`
	Thought       string                     `json:"thought"`
	Type          StepType                   `json:"type"`
	ToolName      string                     `json:"tool_name,omitempty"`
	ToolArguments map[string]json.RawMessage `json:"tool_arguments,omitempty"`
	ToolResult    json.RawMessage            `json:"tool_result,omitempty"`
	FinalAnswer   *FinalAnswer               `json:"final_answer,omitempty"`
}

// RunResult is returned to the caller after the agent finishes.
// FinalAnswer is always present: if the step budget runs out it is
// synthesized rather than omitted.
type RunResult struct {
	Success     bool        `json:"success"`
	Steps       []Step      `json:"steps"`
	FinalAnswer FinalAnswer `json:"final_answer"`
	TokenUsage  int         `json:"token_usage"`
}

// Document is an ingested drive file, unique per (FileID, UserID).
type Document struct {
	ID        string
	FileID    string
	UserID    string
	Name      string
	MimeType  string
	UpdatedAt time.Time
}

// ChunkMetadata records a chunk's position within its document.
type ChunkMetadata struct {
	ChunkIndex  int `json:"chunkIndex"`
	TotalChunks int `json:"totalChunks"`
}

// Chunk is one embedded slice of a document's text.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Embedding  []float32
	Metadata   ChunkMetadata
}

// ChunkMatch is one nearest-neighbor hit joined with its document name.
// Distance is cosine distance: lower is more similar.
type ChunkMatch struct {
	ID           string        `json:"id"`
	DocumentID   string        `json:"document_id"`
	DocumentName string        `json:"document_name"`
	Content      string        `json:"content"`
	Metadata     ChunkMetadata `json:"metadata"`
	Distance     float64       `json:"distance"`
}

// IngestResult aggregates one ingestion run. Per-file failures are counted
// and described; they never abort the batch.
type IngestResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// SyncResult reports one incremental sync pass over the drive change feed.
type SyncResult struct {
	NewPageToken string `json:"newPageToken"`
	Processed    int    `json:"processed"`
	Deleted      int    `json:"deleted"`
}

// ChatTurn is one completed agent exchange persisted to a session's history.
type ChatTurn struct {
	ID             string
	SessionID      string
	Task           string
	Summary        string
	DetailedAnswer string
	Sources        []string
	TokenUsage     int
	CreatedAt      time.Time
}
