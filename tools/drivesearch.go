package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/libra-agent/libra/drive"
)

const (
	driveSearchDefault = 10
	driveSearchMax     = 50
)

// DriveSearcher yields a per-user Drive client. Satisfied by
// *drive.Connector.
type DriveSearcher interface {
	ClientFor(ctx context.Context, userID string) (*drive.Client, error)
}

// DriveSearchTool searches the user's Google Drive files by name and
// content.
type DriveSearchTool struct {
	connector DriveSearcher
}

// NewDriveSearchTool creates a Drive search tool.
func NewDriveSearchTool(connector DriveSearcher) *DriveSearchTool {
	return &DriveSearchTool{connector: connector}
}

func (t *DriveSearchTool) Metadata() Metadata {
	return Metadata{
		Name:        "googleDriveSearch",
		Description: "Search the user's Google Drive for files matching a query. Returns file names, IDs and types.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Text to match against file names and content", Required: true},
			{Name: "maxResults", Type: "number", Description: "Maximum number of files to return (1-50, default 10)", Required: false},
		},
	}
}

type driveSearchFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
}

func (t *DriveSearchTool) Execute(ctx context.Context, args map[string]json.RawMessage, tc Context) Result {
	query, err := stringArg(args, "query")
	if err != nil {
		return Failure(err)
	}
	maxResults, err := intArg(args, "maxResults", driveSearchDefault)
	if err != nil {
		return Failure(err)
	}
	maxResults = clamp(maxResults, 1, driveSearchMax)

	client, err := t.connector.ClientFor(ctx, tc.UserID)
	if err != nil {
		return Failuref("google drive is not connected: %v", err)
	}

	files, err := client.Search(ctx, query, maxResults)
	if err != nil {
		return Failuref("drive search failed: %v", err)
	}

	out := make([]driveSearchFile, 0, len(files))
	for _, f := range files {
		entry := driveSearchFile{
			ID:          f.ID,
			Name:        f.Name,
			MimeType:    f.MimeType,
			WebViewLink: f.WebViewLink,
		}
		if !f.ModifiedTime.IsZero() {
			entry.ModifiedTime = f.ModifiedTime.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return Success(map[string]any{"query": query, "files": out})
}
