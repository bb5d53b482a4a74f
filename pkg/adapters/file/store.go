package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sonicwave/pulse/pkg/domain"
)

// DefaultDir is used when New is given an empty directory.
const DefaultDir = ".pulse/snapshots"

const (
	ext       = ".json"
	tmpPrefix = "tmp-"
)

// ErrInvalidDeviceID is returned for IDs that cannot be used as file names.
var ErrInvalidDeviceID = errors.New("invalid device id")

// Store implements ports.SnapshotStore on the local filesystem, one JSON
// file per device.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	if dir == "" {
		dir = filepath.FromSlash(DefaultDir)
	}
	return &Store{Dir: dir}
}

func (s *Store) path(deviceID string) (string, error) {
	if deviceID == "" || deviceID == "." || deviceID == ".." ||
		strings.ContainsAny(deviceID, `/\`) || strings.HasPrefix(deviceID, tmpPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, deviceID)
	}
	return filepath.Join(s.Dir, deviceID+ext), nil
}

// Save writes the snapshot atomically: a temp file in the same directory is
// written, synced and renamed over the destination.
func (s *Store) Save(ctx context.Context, deviceID string, state domain.UiState) error {
	dest, err := s.path(deviceID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, tmpPrefix+deviceID+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows rename does not replace an existing destination.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace snapshot of %s: %w", deviceID, err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads the snapshot of deviceID.
func (s *Store) Load(ctx context.Context, deviceID string) (domain.UiState, error) {
	p, err := s.path(deviceID)
	if err != nil {
		return domain.UiState{}, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.UiState{}, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, deviceID)
		}
		return domain.UiState{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var state domain.UiState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.UiState{}, fmt.Errorf("failed to unmarshal snapshot of %s: %w", deviceID, err)
	}
	return state, nil
}

// Delete removes the snapshot file. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, deviceID string) error {
	p, err := s.path(deviceID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns the devices with a snapshot file, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op; it lets the CLI treat every store alike.
func (s *Store) Close() error { return nil }
