package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsFactory/internal/domain"
)

func TestStoreRoundTripsArtifactsPerDate(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	script := domain.Script{
		ID:                "s1",
		BatchID:           "b1",
		Title:             "Morning",
		Text:              "Hello there.",
		EstimatedDuration: 42 * time.Second,
	}
	require.NoError(t, s.SaveScript("2025-01-02", script))

	got, err := s.LoadScript("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, 42*time.Second, got.EstimatedDuration)

	_, err = s.LoadScript("2025-01-03")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestStoreLoadMissingReturnsNotFound(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	_, err := s.LoadItems("2025-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadAudio("2025-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadSubtitles("2025-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadVideo("2025-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadPublication("2025-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreWriteMediaAndExists(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	assert.False(t, s.Exists(s.MediaPath("2025-01-02", "narration.mp3")))

	path, err := s.WriteMedia("2025-01-02", "narration.mp3", []byte("ID3"))
	require.NoError(t, err)
	assert.Equal(t, s.MediaPath("2025-01-02", "narration.mp3"), path)
	assert.True(t, s.Exists(path))

	entries, err := os.ReadDir(s.Dir("2025-01-02"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestStoreStagingAndPromote(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	final := s.MediaPath("2025-01-02", "shorts.mp4")
	staging, err := s.StagingPath("2025-01-02", "shorts.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(final), filepath.Dir(staging))
	assert.Equal(t, ".mp4", filepath.Ext(staging))
	assert.False(t, s.Exists(final))

	require.NoError(t, os.WriteFile(staging, []byte("video"), 0o644))
	require.NoError(t, s.Promote(staging, final))

	assert.True(t, s.Exists(final))
	_, err = os.Stat(staging)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreDatesListsOnlyDateDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.SaveItems("2025-01-03", domain.ItemBatch{ID: "b"}))
	require.NoError(t, s.SaveItems("2025-01-01", domain.ItemBatch{ID: "a"}))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backgrounds"), 0o755))

	dates, err := s.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-03"}, dates)
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "file.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(raw))
}
