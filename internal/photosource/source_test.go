package photosource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, modTime time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("not really an image"), 0o644))
	require.NoError(t, os.Chtimes(p, modTime, modTime))
}

func TestDirectorySource_Scan(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeFile(t, root, "b.JPG", now)
	writeFile(t, root, "a.jpeg", now)
	writeFile(t, root, "trip/c.heic", now)
	writeFile(t, root, "notes.txt", now)
	writeFile(t, root, ".thumbnails/x.jpg", now)

	src, err := NewDirectorySource(root, nil)
	require.NoError(t, err)

	ids, err := src.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpeg", "b.JPG", "trip/c.heic"}, ids)
}

func TestDirectorySource_RecordsFallBackToModTime(t *testing.T) {
	root := t.TempDir()
	taken := time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, root, "a.jpg", taken)

	src, err := NewDirectorySource(root, nil)
	require.NoError(t, err)

	records, err := src.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.jpg", records[0].ID)
	assert.True(t, taken.Equal(records[0].TakenAt))
	assert.Nil(t, records[0].Coordinate)
}

func TestDirectorySource_RejectsEscapingIDs(t *testing.T) {
	src, err := NewDirectorySource(t.TempDir(), nil)
	require.NoError(t, err)

	for _, id := range []string{"../etc/passwd", "/etc/passwd", "a/../../b.jpg", "."} {
		_, err := src.Records(context.Background(), []string{id})
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestDirectorySource_MissingPhoto(t *testing.T) {
	src, err := NewDirectorySource(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = src.Records(context.Background(), []string{"missing.jpg"})
	assert.Error(t, err)
}

func TestNewDirectorySource_NotADirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.jpg", time.Now())

	_, err := NewDirectorySource(filepath.Join(root, "file.jpg"), nil)
	assert.Error(t, err)
	_, err = NewDirectorySource(filepath.Join(root, "nope"), nil)
	assert.Error(t, err)
}

func TestDirectorySource_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.jpg", time.Now())
	src, err := NewDirectorySource(root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Records(ctx, []string{"a.jpg"})
	assert.ErrorIs(t, err, context.Canceled)
}
