/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package photos is the narrow surface the upload producer talks to: store
// an image blob and append one immutable index entry.
package photos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/events"
	"github.com/friendsincode/canvas_frame/internal/fstore"
	"github.com/friendsincode/canvas_frame/internal/models"
)

var (
	// ErrEmptyBody indicates an upload without image bytes.
	ErrEmptyBody = errors.New("empty body")

	// ErrNotFound indicates a requested image blob does not exist.
	ErrNotFound = errors.New("image not found")

	// ErrInvalidFilename indicates a legacy filename with unsafe characters.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrInvalidExtension indicates a legacy filename that is not a jpeg.
	ErrInvalidExtension = errors.New("only .jpg/.jpeg allowed")

	// ErrInvalidSuffix indicates a legacy filename without an orientation tag.
	ErrInvalidSuffix = errors.New("filename must end with _P.jpg or _L.jpg")
)

// Service stores photos and rotation settings.
type Service struct {
	store  *fstore.Store
	bus    *events.Bus
	logger zerolog.Logger
	nowFn  func() time.Time
}

// NewService creates a photo service.
func NewService(store *fstore.Store, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "photos").Logger(),
		nowFn:  time.Now,
	}
}

// UploadResult reports a stored upload.
type UploadResult struct {
	ID    models.ImageID
	URL   string
	Entry models.PhotoEntry
}

// FileName returns the blob name for an image id.
func FileName(id models.ImageID) string {
	return string(id) + ".jpg"
}

// ImageURL returns the relative serving path for an image id.
func ImageURL(id models.ImageID) string {
	return "/images/" + FileName(id)
}

// Upload stores raw image bytes under a fresh id and appends the index
// entry. The entry is immutable afterwards.
func (s *Service) Upload(orientation models.Orientation, body []byte) (UploadResult, error) {
	if len(body) == 0 {
		return UploadResult{}, ErrEmptyBody
	}

	id := models.NewImageID()
	file := FileName(id)
	if err := s.store.WriteImage(file, body); err != nil {
		return UploadResult{}, err
	}

	idx, err := s.store.LoadIndex()
	if err != nil {
		return UploadResult{}, err
	}
	entry := models.PhotoEntry{
		File:        file,
		Orientation: orientation,
		AddedAt:     s.nowFn().UTC(),
	}
	idx.Photos = append(idx.Photos, entry)
	if err := s.store.SaveIndex(idx); err != nil {
		return UploadResult{}, err
	}

	s.logger.Info().Str("file", file).Str("orientation", string(orientation)).Msg("photo stored")
	s.bus.Publish(events.EventPhotoUploaded, events.Payload{
		"image_id":    string(id),
		"orientation": string(orientation),
	})

	return UploadResult{ID: id, URL: ImageURL(id), Entry: entry}, nil
}

// ParseUploadFilename extracts the orientation from a legacy-style upload
// filename (photo_P.jpg). The stored blob still gets a generated name; only
// the orientation tag is taken from the caller.
func ParseUploadFilename(raw string) (models.Orientation, error) {
	if raw == "" || strings.ContainsAny(raw, "/\\") || strings.Contains(raw, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, raw)
	}
	lower := strings.ToLower(raw)
	if !strings.HasSuffix(lower, ".jpg") && !strings.HasSuffix(lower, ".jpeg") {
		return "", ErrInvalidExtension
	}
	base := strings.TrimSuffix(strings.TrimSuffix(lower, ".jpeg"), ".jpg")
	switch {
	case strings.HasSuffix(base, "_p"):
		return models.OrientationPortrait, nil
	case strings.HasSuffix(base, "_l"):
		return models.OrientationLandscape, nil
	default:
		return "", ErrInvalidSuffix
	}
}

// Image returns the raw bytes of a stored blob by file name.
func (s *Service) Image(name string) ([]byte, error) {
	data, err := s.store.ReadImage(name)
	if err != nil {
		if errors.Is(err, fstore.ErrUnsafeName) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}

// AllImageIDs returns the id of every indexed photo, insertion order
// preserved. Entries without a uuid-shaped base name are skipped.
func (s *Service) AllImageIDs() ([]models.ImageID, error) {
	idx, err := s.store.LoadIndex()
	if err != nil {
		return nil, err
	}
	ids := make([]models.ImageID, 0, len(idx.Photos))
	for _, photo := range idx.Photos {
		base := strings.TrimSuffix(photo.File, ".jpg")
		id, err := models.ParseImageID(base)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Resolve maps an image id back to its index entry.
func (s *Service) Resolve(id models.ImageID) (models.PhotoEntry, bool, error) {
	idx, err := s.store.LoadIndex()
	if err != nil {
		return models.PhotoEntry{}, false, err
	}
	file := FileName(id)
	for _, photo := range idx.Photos {
		if photo.File == file {
			return photo, true, nil
		}
	}
	return models.PhotoEntry{}, false, nil
}

// Count returns the number of indexed photos.
func (s *Service) Count() (int, error) {
	idx, err := s.store.LoadIndex()
	if err != nil {
		return 0, err
	}
	return len(idx.Photos), nil
}

// DeleteAll removes every stored blob and resets the index. Returns the
// number of files removed.
func (s *Service) DeleteAll() (int, error) {
	deleted, err := s.store.DeleteAllImageFiles()
	if err != nil {
		return deleted, err
	}
	if err := s.store.SaveIndex(models.EmptyIndex()); err != nil {
		return deleted, err
	}

	s.logger.Info().Int("deleted", deleted).Msg("all photos deleted")
	s.bus.Publish(events.EventPhotosCleared, events.Payload{"deleted": deleted})
	return deleted, nil
}

// Settings returns the current rotation settings.
func (s *Service) Settings() (models.Settings, error) {
	return s.store.LoadSettings()
}

// UpdateSettings applies a partial patch and persists the result.
func (s *Service) UpdateSettings(patch models.SettingsPatch) (models.Settings, error) {
	current, err := s.store.LoadSettings()
	if err != nil {
		return models.Settings{}, err
	}
	next := models.ApplySettingsPatch(current, patch)
	if err := s.store.SaveSettings(next); err != nil {
		return models.Settings{}, err
	}
	return next, nil
}
