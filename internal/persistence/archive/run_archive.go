package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"crowdfield.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID      string `json:"run_id"`
	Scenario   string `json:"scenario"`
	EndTick    uint64 `json:"end_tick"`
	Agents     int    `json:"agents"`
	TickRateHz int    `json:"tick_rate_hz"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveCompletedRun copies the final snapshot of a run into
// `dataDir/archives/<run id>/`. Only runs in which every agent has arrived
// are archived; archived is false otherwise.
func ArchiveCompletedRun(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if len(snap.Agents) == 0 || snap.Header.RunID == "" {
		return "", false, nil
	}
	for _, a := range snap.Agents {
		if !a.Finished {
			return "", false, nil
		}
	}

	archiveDir := filepath.Join(dataDir, "archives", snap.Header.RunID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, fmt.Errorf("copy snapshot: %w", err)
	}

	meta := RunArchiveMeta{
		RunID:      snap.Header.RunID,
		Scenario:   snap.Header.Scenario,
		EndTick:    snap.Header.Tick,
		Agents:     len(snap.Agents),
		TickRateHz: snap.Tuning.TickRateHz,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
