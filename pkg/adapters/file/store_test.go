package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonicwave/pulse/pkg/adapters/file"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	store := file.New(dir)
	ctx := context.Background()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Save(ctx, "dev-1", domain.UiState{RunState: domain.RunIdle}))
	_, err = os.Stat(filepath.Join(dir, "dev-1.json"))
	assert.NoError(t, err)
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`, "tmp-x"} {
		err := store.Save(ctx, id, domain.UiState{})
		assert.ErrorIs(t, err, file.ErrInvalidDeviceID, id)
		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, file.ErrInvalidDeviceID, id)
	}
}

func TestFileStore_ListSkipsStrayFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", domain.UiState{}))
	require.NoError(t, store.Save(ctx, "a", domain.UiState{}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-c-123.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestFileStore_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dev.json"), []byte("{not json"), 0o644))

	_, err := store.Load(context.Background(), "dev")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSnapshotNotFound)
}
