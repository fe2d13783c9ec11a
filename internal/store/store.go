// Package store owns all filesystem paths for a job's generated artifacts.
// One directory per job, named after the job's public UUID, under a single
// configured root.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dirPrefix = "cv_"

// knownArtifacts are the filenames a job directory may contain. DeleteAll
// falls back to removing these one by one when the directory removal fails.
var knownArtifacts = []string{"cv.pdf", "preview.jpg", "cv.tex"}

// Store persists job artifacts onto the local filesystem.
type Store struct {
	root string
	log  zerolog.Logger
}

// New initializes a Store rooted at root, creating it if absent.
func New(root string, log zerolog.Logger) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("store: root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure root path: %w", err)
	}
	return &Store{root: root, log: log.With().Str("component", "store").Logger()}, nil
}

// Root returns the configured root directory.
func (s *Store) Root() string {
	return s.root
}

// JobDir returns the directory path for a job without creating it.
func (s *Store) JobDir(jobUUID uuid.UUID) string {
	return filepath.Join(s.root, dirPrefix+jobUUID.String())
}

// AllocateDir creates the per-job directory if absent and returns its path.
// Idempotent.
func (s *Store) AllocateDir(jobUUID uuid.UUID) (string, error) {
	dir := s.JobDir(jobUUID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: allocate job directory: %w", err)
	}
	return dir, nil
}

// WriteFile stores data under the job's directory and returns the full
// path. The filename is sanitized against traversal.
func (s *Store) WriteFile(jobUUID uuid.UUID, filename string, data []byte) (string, error) {
	name, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}
	dir, err := s.AllocateDir(jobUUID)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(dir, name)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("store: write file: %w", err)
	}
	return fullPath, nil
}

// SizeOf returns the byte size of a file on disk.
func (s *Store) SizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("store: stat file: %w", err)
	}
	return info.Size(), nil
}

// DeleteAll removes a job's directory and everything in it. Cleanup is
// best-effort: if the directory removal fails, known artifact files are
// deleted one by one and the failure is logged. DeleteAll never returns an
// error.
func (s *Store) DeleteAll(jobUUID uuid.UUID) {
	dir := s.JobDir(jobUUID)
	err := os.RemoveAll(dir)
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Str("dir", dir).Msg("directory removal failed, deleting known files individually")
	for _, name := range knownArtifacts {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", name).Msg("failed to delete artifact file")
		}
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("dir", dir).Msg("failed to remove job directory")
	}
}

// FindOrphans lists per-job directories whose UUID is not in known. Used by
// periodic maintenance, not by the generation path.
func (s *Store) FindOrphans(known []uuid.UUID) ([]string, error) {
	keep := make(map[uuid.UUID]struct{}, len(known))
	for _, u := range known {
		keep[u] = struct{}{}
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store: read root: %w", err)
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		u, err := uuid.Parse(strings.TrimPrefix(entry.Name(), dirPrefix))
		if err != nil {
			continue
		}
		if _, ok := keep[u]; !ok {
			orphans = append(orphans, filepath.Join(s.root, entry.Name()))
		}
	}
	return orphans, nil
}

// sanitizeName restricts filenames to a single path element under the job
// directory.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("store: filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned == "." || cleaned == ".." {
		return "", errors.New("store: invalid filename")
	}
	return cleaned, nil
}
