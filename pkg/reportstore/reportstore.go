// Package reportstore decides whether a run report is published inline on
// its result message or offloaded to blob storage, mirroring the
// workflow engine's inline-vs-blob convention for oversized payloads.
package reportstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowforge/engine/pkg/storage"
)

// InlineLimit is the largest a serialized report may be before it is
// offloaded to blob storage instead of carried inline on the result
// message.
const InlineLimit = 1536 * 1024 // 1.5MB

// BlobReference points at an offloaded report.
type BlobReference struct {
	URL       string `json:"url"`
	SizeBytes int    `json:"sizeBytes"`
}

// Store offloads oversized run reports to blob storage and fetches them
// back on demand. A nil blob client is valid: Put then always returns the
// report inline and errors if it is too large to carry.
type Store struct {
	blob   storage.BlobStorageClient
	logger *zap.Logger
}

// New returns a Store backed by the given blob client. blob may be nil,
// in which case oversized reports cannot be stored.
func New(blob storage.BlobStorageClient, logger *zap.Logger) *Store {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Store{blob: blob, logger: logger}
}

// Put serializes the given value and, if it fits within InlineLimit,
// returns it as inline JSON. Otherwise it uploads the serialized report to
// blob storage under a path keyed by workflowID/runID and returns a
// BlobReference instead.
func (s *Store) Put(ctx context.Context, workflowID, runID string, report interface{}) (inline json.RawMessage, ref *BlobReference, err error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal report: %w", err)
	}

	if len(data) <= InlineLimit {
		return json.RawMessage(data), nil, nil
	}

	if s.blob == nil {
		return nil, nil, fmt.Errorf("report is %d bytes, exceeds inline limit %d, but no blob store is configured", len(data), InlineLimit)
	}

	path := reportPath(workflowID, runID)
	url, err := s.blob.UploadResult(ctx, path, data, map[string]string{
		"workflow_id": workflowID,
		"run_id":      runID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upload report: %w", err)
	}

	s.logger.Info("offloaded oversized run report to blob storage",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", runID),
		zap.Int("size_bytes", len(data)))

	return nil, &BlobReference{URL: url, SizeBytes: len(data)}, nil
}

// Get resolves a BlobReference back to the raw report bytes.
func (s *Store) Get(ctx context.Context, ref *BlobReference) ([]byte, error) {
	if ref == nil {
		return nil, fmt.Errorf("nil blob reference")
	}
	if s.blob == nil {
		return nil, fmt.Errorf("no blob store configured")
	}
	return s.blob.DownloadResult(ctx, ref.URL)
}

func reportPath(workflowID, runID string) string {
	return fmt.Sprintf("reports/%s/%s/report.json", workflowID, runID)
}
