package collector

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/model"
)

// Snapshot is the durable record of the last successful structured
// collection run, kept for replay and debugging.
type Snapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Count     int             `json:"count"`
	Startups  []model.Startup `json:"startups"`
}

// BackupSuffix is appended to the snapshot path for the rotated copy.
const BackupSuffix = ".backup"

// WriteSnapshot persists records to path, rotating any existing
// snapshot to a single backup first. At most one backup is retained.
func WriteSnapshot(path string, startups []model.Startup, now time.Time) error {
	if _, err := os.Stat(path); err == nil {
		backup := path + BackupSuffix
		if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
			return eris.Wrap(err, "snapshot: remove old backup")
		}
		if err := os.Rename(path, backup); err != nil {
			return eris.Wrap(err, "snapshot: rotate to backup")
		}
	}

	data, err := json.MarshalIndent(Snapshot{
		Timestamp: now,
		Count:     len(startups),
		Startups:  startups,
	}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "snapshot: marshal")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "snapshot: write")
	}

	zap.L().Info("snapshot: saved",
		zap.String("path", path),
		zap.Int("count", len(startups)),
	)
	return nil
}

// LoadSnapshot reads the last persisted snapshot. A missing file is not
// an error; it returns an empty snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, eris.Wrap(err, "snapshot: read")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrap(err, "snapshot: unmarshal")
	}
	return &snap, nil
}
