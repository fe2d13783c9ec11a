package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("  ", zerolog.Nop())
	require.Error(t, err)
}

func TestAllocateDirIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()

	dir1, err := s.AllocateDir(id)
	require.NoError(t, err)
	dir2, err := s.AllocateDir(id)
	require.NoError(t, err)

	assert.Equal(t, dir1, dir2)
	assert.Contains(t, filepath.Base(dir1), "cv_"+id.String())
	info, err := os.Stat(dir1)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteFileAndSizeOf(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	data := []byte("hello artifact")

	path, err := s.WriteFile(id, "cv.pdf", data)
	require.NoError(t, err)

	size, err := s.SizeOf(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	read, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, read)
}

func TestWriteFileRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "../escape.pdf", "a/b.pdf", "..", "."} {
		_, err := s.WriteFile(uuid.New(), name, []byte("x"))
		assert.Error(t, err, "filename %q should be rejected", name)
	}
}

func TestDeleteAllRemovesDirectory(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	_, err := s.WriteFile(id, "cv.pdf", []byte("x"))
	require.NoError(t, err)

	s.DeleteAll(id)

	_, statErr := os.Stat(s.JobDir(id))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteAllToleratesMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	// Must not panic or log-fail on a job that never wrote anything.
	s.DeleteAll(uuid.New())
}

func TestFindOrphans(t *testing.T) {
	s := newTestStore(t)
	known := uuid.New()
	orphan := uuid.New()

	_, err := s.AllocateDir(known)
	require.NoError(t, err)
	_, err = s.AllocateDir(orphan)
	require.NoError(t, err)

	// Non-job directories are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "unrelated"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "cv_not-a-uuid"), 0o755))

	orphans, err := s.FindOrphans([]uuid.UUID{known})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, s.JobDir(orphan), orphans[0])
}
