package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/libra-agent/libra/model"
)

// Syncer applies Drive change-feed deltas through the ingestion pipeline.
type Syncer struct {
	pipeline *Pipeline
	logger   *zap.Logger
}

// NewSyncer creates a syncer on top of an existing pipeline.
func NewSyncer(pipeline *Pipeline, logger *zap.Logger) *Syncer {
	return &Syncer{pipeline: pipeline, logger: logger}
}

// StartPageToken returns the checkpoint marking the current head of the
// user's change feed.
func (s *Syncer) StartPageToken(ctx context.Context, userID string) (string, error) {
	client, err := s.pipeline.connector.ClientFor(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("google drive unavailable: %w", err)
	}
	return client.StartPageToken(ctx)
}

// Sync drains the change feed from pageToken, removes deleted documents,
// re-ingests the changed subset, and returns the advanced checkpoint.
// When the user has no Drive connection the token is returned unchanged
// with zero counts.
func (s *Syncer) Sync(ctx context.Context, userID, pageToken string) (model.SyncResult, error) {
	result := model.SyncResult{NewPageToken: pageToken}

	client, err := s.pipeline.connector.ClientFor(ctx, userID)
	if err != nil {
		s.logger.Warn("sync skipped, drive unavailable",
			zap.String("user", userID),
			zap.Error(err))
		return result, nil
	}

	feed, err := client.Changes(ctx, pageToken)
	if err != nil {
		return result, fmt.Errorf("reading change feed: %w", err)
	}
	result.NewPageToken = feed.NewStartPageToken

	removed := make(map[string]bool)
	changed := make(map[string]bool)
	var changedOrder []string
	for _, ch := range feed.Changes {
		if ch.FileID == "" {
			continue
		}
		if ch.Removed {
			removed[ch.FileID] = true
			continue
		}
		if !changed[ch.FileID] {
			changed[ch.FileID] = true
			changedOrder = append(changedOrder, ch.FileID)
		}
	}

	// Removals first, so a file that was both changed and removed in the
	// same window ends up deleted.
	for fileID := range removed {
		if err := s.pipeline.store.DeleteDocumentByFileID(ctx, fileID, userID); err != nil {
			return result, fmt.Errorf("removing document %s: %w", fileID, err)
		}
		result.Deleted++
	}

	if len(changedOrder) > 0 {
		ingested := s.pipeline.Run(ctx, userID, Options{FileIDs: changedOrder})
		result.Processed = ingested.Processed
		if len(ingested.Errors) > 0 {
			s.logger.Warn("sync ingestion reported errors",
				zap.String("user", userID),
				zap.Strings("errors", ingested.Errors))
		}
	}

	s.logger.Info("sync complete",
		zap.String("user", userID),
		zap.Int("processed", result.Processed),
		zap.Int("deleted", result.Deleted))
	return result, nil
}
