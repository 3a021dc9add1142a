package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
)

const (
	listPageSize = 100
	fileFields   = "id, name, mimeType, modifiedTime, size, webViewLink"
)

// FileInfo is the file metadata the rest of the system cares about.
type FileInfo struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
	Size         int64
	WebViewLink  string
}

// Change is a single entry from the Drive changes feed.
type Change struct {
	FileID  string
	Removed bool
}

// ChangeList is one fully-drained read of the changes feed.
type ChangeList struct {
	Changes           []Change
	NewStartPageToken string
}

// Client performs Drive API calls on behalf of a single user.
type Client struct {
	svc *gdrive.Service
}

// ListFiles returns metadata for every non-trashed file the user can see,
// following pagination to the end.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q("trashed = false").
			PageSize(listPageSize).
			Fields("nextPageToken", "files("+fileFields+")").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing drive files: %w", err)
		}
		for _, f := range page.Files {
			files = append(files, toFileInfo(f))
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetFile fetches metadata for a single file.
func (c *Client) GetFile(ctx context.Context, fileID string) (FileInfo, error) {
	f, err := c.svc.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return FileInfo{}, fmt.Errorf("fetching file %s: %w", fileID, err)
	}
	return toFileInfo(f), nil
}

// Download streams the raw bytes of a binary file. The caller must close
// the returned reader.
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	return resp.Body, nil
}

// Export streams a Google Workspace document converted to the given MIME
// type. The caller must close the returned reader.
func (c *Client) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("exporting file %s as %s: %w", fileID, mimeType, err)
	}
	return resp.Body, nil
}

// Search finds files whose name or content matches the query. Double quotes
// in the query are escaped so user input cannot break out of the Drive
// query string.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]FileInfo, error) {
	escaped := strings.ReplaceAll(query, `"`, `\"`)
	q := fmt.Sprintf(`trashed = false and (name contains "%s" or fullText contains "%s")`, escaped, escaped)
	page, err := c.svc.Files.List().
		Q(q).
		PageSize(int64(maxResults)).
		Fields("files(" + fileFields + ")").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("searching drive: %w", err)
	}
	files := make([]FileInfo, 0, len(page.Files))
	for _, f := range page.Files {
		files = append(files, toFileInfo(f))
	}
	return files, nil
}

// StartPageToken returns the token marking the current head of the changes
// feed. Changes made after this call can be fetched by passing the token
// to Changes.
func (c *Client) StartPageToken(ctx context.Context) (string, error) {
	resp, err := c.svc.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching start page token: %w", err)
	}
	return resp.StartPageToken, nil
}

// Changes drains the changes feed from the given token and returns every
// entry together with the advanced token for the next sync.
func (c *Client) Changes(ctx context.Context, pageToken string) (ChangeList, error) {
	var list ChangeList
	token := pageToken
	for {
		page, err := c.svc.Changes.List(token).
			Fields("nextPageToken", "newStartPageToken", "changes(fileId, removed)").
			Context(ctx).
			Do()
		if err != nil {
			return ChangeList{}, fmt.Errorf("listing drive changes: %w", err)
		}
		for _, ch := range page.Changes {
			list.Changes = append(list.Changes, Change{FileID: ch.FileId, Removed: ch.Removed})
		}
		if page.NewStartPageToken != "" {
			list.NewStartPageToken = page.NewStartPageToken
			return list, nil
		}
		if page.NextPageToken == "" {
			list.NewStartPageToken = pageToken
			return list, nil
		}
		token = page.NextPageToken
	}
}

func toFileInfo(f *gdrive.File) FileInfo {
	info := FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			info.ModifiedTime = t
		}
	}
	return info
}
