/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package fstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/models"
)

// Well-known record keys.
const (
	KeyIndex    = "index"
	KeySettings = "settings"
)

// ErrUnsafeName rejects blob names that could escape the images directory.
var ErrUnsafeName = errors.New("image name must not contain path separators")

// PlaylistKey returns the record key for a playlist id.
func PlaylistKey(id models.PlaylistID) string {
	return "playlist/" + string(id)
}

// Store persists JSON records and raw image blobs under a data directory.
// Writes go to a temporary file followed by a single rename, so concurrent
// readers observe either the old or the new complete value, never a partial
// one.
type Store struct {
	dataDir     string
	imagesDir   string
	playlistDir string
	logger      zerolog.Logger
}

// New creates a store rooted at dataDir.
func New(dataDir string, logger zerolog.Logger) *Store {
	return &Store{
		dataDir:     dataDir,
		imagesDir:   filepath.Join(dataDir, "images"),
		playlistDir: filepath.Join(dataDir, "playlist"),
		logger:      logger.With().Str("component", "fstore").Logger(),
	}
}

// DataDir returns the store root.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ensure creates the directory layout. Idempotent, repeated on every access.
// TODO: cache the first success once request volume warrants it.
func (s *Store) ensure() error {
	for _, dir := range []string{s.dataDir, s.imagesDir, s.playlistDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure data dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) recordPath(key string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(key)+".json")
}

// Load reads the record stored under key. A missing or corrupt record is
// not an error: it degrades to def with found=false.
func Load[T any](s *Store, key string, def T) (T, bool, error) {
	if err := s.ensure(); err != nil {
		return def, false, err
	}
	raw, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Str("key", key).Msg("record unreadable, using default")
		}
		return def, false, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("record corrupt, using default")
		return def, false, nil
	}
	return value, true, nil
}

// Save atomically replaces the record stored under key. Write failures are
// fatal to the calling operation and propagate.
func Save[T any](s *Store, key string, value T) error {
	if err := s.ensure(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return writeFileAtomic(s.recordPath(key), payload)
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place.
func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// LoadIndex returns the photo index, persisting the empty default on first
// access (self-healing bootstrap).
func (s *Store) LoadIndex() (models.IndexFile, error) {
	idx, found, err := Load(s, KeyIndex, models.EmptyIndex())
	if err != nil {
		return models.EmptyIndex(), err
	}
	idx = models.NormalizeIndex(idx)
	if !found {
		if err := Save(s, KeyIndex, idx); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// SaveIndex atomically replaces the photo index.
func (s *Store) SaveIndex(idx models.IndexFile) error {
	return Save(s, KeyIndex, idx)
}

// LoadSettings returns the rotation settings, persisting the default on
// first access.
func (s *Store) LoadSettings() (models.Settings, error) {
	settings, found, err := Load(s, KeySettings, models.DefaultSettings())
	if err != nil {
		return models.DefaultSettings(), err
	}
	settings = models.NormalizeSettings(settings)
	if !found {
		if err := Save(s, KeySettings, settings); err != nil {
			return settings, err
		}
	}
	return settings, nil
}

// SaveSettings atomically replaces the rotation settings.
func (s *Store) SaveSettings(settings models.Settings) error {
	return Save(s, KeySettings, settings)
}

func validImageName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, "/\\") &&
		!strings.Contains(name, "\x00") &&
		name != "." && name != ".."
}

// WriteImage stores a raw image blob under name.
func (s *Store) WriteImage(name string, data []byte) error {
	if !validImageName(name) {
		return fmt.Errorf("%w, received %q", ErrUnsafeName, name)
	}
	if err := s.ensure(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.imagesDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}
	return nil
}

// ReadImage returns the raw bytes of a stored blob. A missing blob reports
// os.ErrNotExist.
func (s *Store) ReadImage(name string) ([]byte, error) {
	if !validImageName(name) {
		return nil, fmt.Errorf("%w, received %q", ErrUnsafeName, name)
	}
	data, err := os.ReadFile(filepath.Join(s.imagesDir, name))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}
	return data, nil
}

// ListImageFiles enumerates stored image blobs.
func (s *Store) ListImageFiles() ([]string, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// DeleteAllImageFiles removes every stored blob and returns the count
// removed.
func (s *Store) DeleteAllImageFiles() (int, error) {
	names, err := s.ListImageFiles()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.imagesDir, name)); err != nil {
			return deleted, fmt.Errorf("delete image %s: %w", name, err)
		}
		deleted++
	}
	return deleted, nil
}
