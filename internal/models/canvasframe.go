/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidOrientation indicates an orientation value outside P/L.
	ErrInvalidOrientation = errors.New("orientation must be 'P' or 'L'")

	// ErrInvalidHour indicates a cron interval below one hour.
	ErrInvalidHour = errors.New("hour must be a number >= 1")

	// ErrInvalidClockHour indicates a wall-clock hour outside 0-23.
	ErrInvalidClockHour = errors.New("clock hour must be in 0..23")

	// ErrInvalidImageID indicates a malformed image identifier.
	ErrInvalidImageID = errors.New("image id must be a uuid")

	// ErrInvalidPlaylistID indicates a malformed playlist identifier.
	ErrInvalidPlaylistID = errors.New("playlist id must be a uuid")

	// ErrInvalidPercentage indicates a battery percentage outside 0-100.
	ErrInvalidPercentage = errors.New("percentage must be in 0..100")

	// ErrInvalidTimezone indicates an unknown IANA timezone identifier.
	ErrInvalidTimezone = errors.New("timezone must be a valid IANA identifier")
)

// Orientation tags an uploaded photo as portrait or landscape.
type Orientation string

const (
	OrientationPortrait  Orientation = "P"
	OrientationLandscape Orientation = "L"
)

// ParseOrientation validates the two-value orientation enumeration.
func ParseOrientation(raw string) (Orientation, error) {
	switch raw {
	case "P":
		return OrientationPortrait, nil
	case "L":
		return OrientationLandscape, nil
	default:
		return "", fmt.Errorf("%w, received %q", ErrInvalidOrientation, raw)
	}
}

// Hour is a rotation interval in whole hours, at least one.
type Hour int

// ParseHour validates a cron interval.
func ParseHour(raw int) (Hour, error) {
	if raw < 1 {
		return 0, fmt.Errorf("%w, received %d", ErrInvalidHour, raw)
	}
	return Hour(raw), nil
}

// Duration converts the interval to a time.Duration.
func (h Hour) Duration() time.Duration {
	return time.Duration(h) * time.Hour
}

// ClockHour is a local wall-clock hour boundary.
type ClockHour int

// ParseClockHour validates a quiet-hours boundary.
func ParseClockHour(raw int) (ClockHour, error) {
	if raw < 0 || raw > 23 {
		return 0, fmt.Errorf("%w, received %d", ErrInvalidClockHour, raw)
	}
	return ClockHour(raw), nil
}

// ImageID identifies a stored image.
type ImageID string

// NewImageID generates a fresh image identifier.
func NewImageID() ImageID {
	return ImageID(uuid.NewString())
}

// ParseImageID validates an image identifier.
func ParseImageID(raw string) (ImageID, error) {
	if _, err := uuid.Parse(raw); err != nil || len(raw) != 36 {
		return "", fmt.Errorf("%w, received %q", ErrInvalidImageID, raw)
	}
	return ImageID(raw), nil
}

// PlaylistID identifies a playlist record.
type PlaylistID string

// NewPlaylistID generates a fresh playlist identifier.
func NewPlaylistID() PlaylistID {
	return PlaylistID(uuid.NewString())
}

// ParsePlaylistID validates a playlist identifier.
func ParsePlaylistID(raw string) (PlaylistID, error) {
	if _, err := uuid.Parse(raw); err != nil || len(raw) != 36 {
		return "", fmt.Errorf("%w, received %q", ErrInvalidPlaylistID, raw)
	}
	return PlaylistID(raw), nil
}

// BatteryPercentage is a device-reported charge level.
type BatteryPercentage int

// ParseBatteryPercentage validates a percentage reported on the query string.
func ParseBatteryPercentage(raw string) (BatteryPercentage, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w, received %q", ErrInvalidPercentage, raw)
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("%w, received %d", ErrInvalidPercentage, n)
	}
	return BatteryPercentage(n), nil
}

// Timezone is a validated IANA timezone identifier.
type Timezone string

// ParseTimezone validates the identifier against the platform tz database.
func ParseTimezone(raw string) (Timezone, error) {
	if raw == "" {
		return "", fmt.Errorf("%w, received %q", ErrInvalidTimezone, raw)
	}
	if _, err := time.LoadLocation(raw); err != nil {
		return "", fmt.Errorf("%w, received %q", ErrInvalidTimezone, raw)
	}
	return Timezone(raw), nil
}

// Location resolves the timezone. Callers hold a validated value, so a
// resolution failure falls back to UTC rather than erroring twice.
func (tz Timezone) Location() *time.Location {
	loc, err := time.LoadLocation(string(tz))
	if err != nil {
		return time.UTC
	}
	return loc
}

// PhotoEntry is one uploaded photo in the index. Entries are immutable and
// removed only by bulk clear.
type PhotoEntry struct {
	File        string      `json:"file"`
	Orientation Orientation `json:"orientation"`
	AddedAt     time.Time   `json:"addedAt"`
}

// IndexFile is the append-only photo index, owned by the file store.
type IndexFile struct {
	Photos []PhotoEntry `json:"photos"`
}

// EmptyIndex returns the index default.
func EmptyIndex() IndexFile {
	return IndexFile{Photos: []PhotoEntry{}}
}

// Valid reports whether a loaded index satisfies its invariants.
func (idx IndexFile) Valid() bool {
	for _, p := range idx.Photos {
		if p.File == "" || (p.Orientation != OrientationPortrait && p.Orientation != OrientationLandscape) {
			return false
		}
	}
	return true
}

// NormalizeIndex degrades an invalid loaded index to the empty default.
func NormalizeIndex(idx IndexFile) IndexFile {
	if idx.Photos == nil || !idx.Valid() {
		return EmptyIndex()
	}
	return idx
}

// Settings holds the per-deployment rotation settings.
type Settings struct {
	IntervalHours int  `json:"intervalHours"`
	Shuffle       bool `json:"shuffle"`
	Cursor        int  `json:"cursor"`
}

// DefaultSettings returns the settings default.
func DefaultSettings() Settings {
	return Settings{IntervalHours: 2, Shuffle: true, Cursor: 0}
}

// Valid reports whether loaded settings satisfy their invariants.
func (s Settings) Valid() bool {
	return s.IntervalHours >= 1 && s.Cursor >= 0
}

// NormalizeSettings degrades invalid loaded settings to the default.
func NormalizeSettings(s Settings) Settings {
	if !s.Valid() {
		return DefaultSettings()
	}
	return s
}

// SettingsPatch is a partial settings update. Absent or invalid fields keep
// the current stored value.
type SettingsPatch struct {
	IntervalHours *int  `json:"intervalHours,omitempty"`
	Shuffle       *bool `json:"shuffle,omitempty"`
}

// ApplySettingsPatch merges a patch over current settings, field by field.
// Invalid fields never override; they fall back to the current value.
func ApplySettingsPatch(current Settings, patch SettingsPatch) Settings {
	next := current
	if patch.IntervalHours != nil && *patch.IntervalHours >= 1 {
		next.IntervalHours = *patch.IntervalHours
	}
	if patch.Shuffle != nil {
		next.Shuffle = *patch.Shuffle
	}
	return next
}

// QuietHours is a local-time window during which no new image is shown.
// The window may wrap midnight (Start > End).
type QuietHours struct {
	Enabled  bool      `json:"enabled"`
	Timezone Timezone  `json:"timezone"`
	Start    ClockHour `json:"start"`
	End      ClockHour `json:"end"`
}

// QuietHoursInput is the unvalidated wire form of a quiet-hours window.
type QuietHoursInput struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// ParseQuietHours validates a quiet-hours window as a whole; it never
// partially applies invalid input.
func ParseQuietHours(in QuietHoursInput) (QuietHours, error) {
	tz, err := ParseTimezone(in.Timezone)
	if err != nil {
		return QuietHours{}, err
	}
	start, err := ParseClockHour(in.Start)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours start: %w", err)
	}
	end, err := ParseClockHour(in.End)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours end: %w", err)
	}
	return QuietHours{Enabled: in.Enabled, Timezone: tz, Start: start, End: end}, nil
}

// PlaylistStatus enumerates playlist states.
type PlaylistStatus string

const (
	PlaylistInProgress PlaylistStatus = "in-progress"
	PlaylistStopped    PlaylistStatus = "stop"
)

// Playlist is the single rotation record driven by device pulls. It is
// created by start, overwritten on every advance, and never deleted.
type Playlist struct {
	ID                  PlaylistID     `json:"id"`
	Status              PlaylistStatus `json:"status"`
	CanvasURL           string         `json:"canvasUrl"`
	CronIntervalInHours Hour           `json:"cronIntervalInHours"`
	AvailableImagesID   []ImageID      `json:"availableImagesId"`
	QuietHours          *QuietHours    `json:"quietHours,omitempty"`
}

// RemoveFromPool returns the available pool without the given id.
func (p Playlist) RemoveFromPool(id ImageID) []ImageID {
	next := make([]ImageID, 0, len(p.AvailableImagesID))
	for _, candidate := range p.AvailableImagesID {
		if candidate != id {
			next = append(next, candidate)
		}
	}
	return next
}

// Battery is the device-reported charge projection. Cached, not
// authoritative.
type Battery struct {
	Percentage         BatteryPercentage `json:"percentage"`
	LastFullChargeDate *time.Time        `json:"lastFullChargeDate"`
}
