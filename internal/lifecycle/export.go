package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agrovoice/agrovoice/pkg/session"
)

// ExportArtifact is the JSON document written by Export. The transcript is
// included in full so the artifact is self-contained.
type ExportArtifact struct {
	SessionID  string             `json:"session_id"`
	ExportedAt time.Time          `json:"exported_at"`
	Stats      *Summary           `json:"stats"`
	Transcript []*session.Message `json:"transcript"`
}

// Export writes a session's full transcript and stats to a timestamped JSON
// file under dir and returns the file path. A missing session surfaces
// session.ErrSessionNotFound rather than producing an empty artifact.
func (m *Manager) Export(ctx context.Context, sessionID, dir string) (string, error) {
	// Stats never creates a session, so a typo'd ID fails here instead of
	// materializing an empty session via Get.
	summary, err := m.Summarize(ctx, sessionID)
	if err != nil {
		return "", err
	}
	snap, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	artifact := ExportArtifact{
		SessionID:  sessionID,
		ExportedAt: time.Now().UTC(),
		Stats:      summary,
		Transcript: snap.Messages,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("session_%s_%s.json", sessionID, artifact.ExportedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
