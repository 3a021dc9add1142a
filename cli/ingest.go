// Ingestion and Drive commands for the CLI.

package cli

import (
	"context"
	"fmt"

	"github.com/libra-agent/libra/ingest"
)

// Ingest runs the ingestion pipeline for the user, optionally restricted
// to explicit file IDs.
func Ingest(ctx context.Context, fileIDs []string, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Pipeline.Run(ctx, opts.UserID, ingest.Options{
		FileIDs:  fileIDs,
		MaxFiles: app.Settings.Ingest.MaxFiles,
	})

	fmt.Printf("Processed: %d\nFailed: %d\n", result.Processed, result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d files failed", result.Failed)
	}
	return nil
}

// Sync applies Drive changes since the given page token.
func Sync(ctx context.Context, pageToken string, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Syncer.Sync(ctx, opts.UserID, pageToken)
	if err != nil {
		return err
	}
	fmt.Printf("Processed: %d\nDeleted: %d\nNext page token: %s\n",
		result.Processed, result.Deleted, result.NewPageToken)
	return nil
}

// SyncToken prints the checkpoint for the current head of the user's
// change feed. Use it as the starting token for the first sync.
func SyncToken(ctx context.Context, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.Syncer.StartPageToken(ctx, opts.UserID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// Connect walks through the Drive OAuth flow: prints the consent URL,
// reads the authorization code back, and stores the tokens.
func Connect(ctx context.Context, code string, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if code == "" {
		fmt.Println("Open this URL, grant access, then re-run with --code <authorization code>:")
		fmt.Println(app.Connector.AuthURL(opts.UserID))
		return nil
	}

	if _, err := app.Connector.Exchange(ctx, opts.UserID, code); err != nil {
		return err
	}
	fmt.Println("Google Drive connected.")
	return nil
}
