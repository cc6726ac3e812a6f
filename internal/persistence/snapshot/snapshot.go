package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"crowdfield.ai/internal/sim/tuning"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Tick     uint64 `json:"tick"`
}

// SnapshotV1 captures everything needed to resume a run bit-for-bit: the
// tuning in effect, the static scene and the kinematic state of every agent.
// Tick is the next tick to be simulated.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Tuning tuning.Tuning `json:"tuning"`

	Agents    []AgentV1    `json:"agents"`
	Obstacles []ObstacleV1 `json:"obstacles,omitempty"`

	// Comfort holds the resampled per-cell field so a resume does not depend
	// on the source texture still being on disk.
	Comfort []float32 `json:"comfort,omitempty"`
}

type AgentV1 struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Pos      [3]float64 `json:"pos"`
	Forward  [3]float64 `json:"forward"`
	Vel      [3]float64 `json:"vel"`
	Goal     [3]float64 `json:"goal"`
	Finished bool       `json:"finished"`
	Color    [4]float32 `json:"color"`
}

type ObstacleV1 struct {
	ID     int          `json:"id"`
	Points [][2]float64 `json:"points"`
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line duplicates what gob carries; it exists for cheap inspection.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

// PathFor is the conventional snapshot location for a tick under runDir.
func PathFor(runDir string, tick uint64) string {
	return filepath.Join(runDir, "snapshots", fmt.Sprintf("%012d.snap.zst", tick))
}
