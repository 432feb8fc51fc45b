package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"StaySentinel/internal/model"
)

// ErrSnapshotWrite means the durable snapshot could not be written. The run aborts.
var ErrSnapshotWrite = errors.New("snapshot write failed")

// WriteSnapshot writes the batch as an indented JSON array, replacing path atomically.
func WriteSnapshot(path string, batch []model.HotelSummary) error {
	if batch == nil {
		batch = []model.HotelSummary{}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrSnapshotWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrSnapshotWrite, err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode: %v", ErrSnapshotWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrSnapshotWrite, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: chmod: %v", ErrSnapshotWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrSnapshotWrite, err)
	}
	return nil
}

// ReadSnapshot returns the raw snapshot bytes as last written.
func ReadSnapshot(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
