/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist implements the rotation state machine the frame drives
// through periodic pulls. The engine never sleeps or schedules on its own;
// the device is the sole driver of time-based progression.
package playlist

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/events"
	"github.com/friendsincode/canvas_frame/internal/fstore"
	"github.com/friendsincode/canvas_frame/internal/models"
)

// Library is the photo storage surface the engine reads from.
type Library interface {
	AllImageIDs() ([]models.ImageID, error)
	Resolve(id models.ImageID) (models.PhotoEntry, bool, error)
	Settings() (models.Settings, error)
}

// DeviceController issues wake and sleep commands to the physical frame.
type DeviceController interface {
	WakeUp(ctx context.Context, canvasURL, serverURL string, cron time.Time) error
	Sleep(ctx context.Context, canvasURL, serverURL string) error
}

// OutcomeKind is the closed set of engine outcomes. Callers handle every
// variant; there is no error-shaped escape hatch for control flow.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomePlaylistNotFound
	OutcomePlaylistStopped
	OutcomePlaylistEmpty
	OutcomeImageNotFound
)

// String renders the outcome for logs.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomePlaylistNotFound:
		return "playlist-not-found"
	case OutcomePlaylistStopped:
		return "playlist-stopped"
	case OutcomePlaylistEmpty:
		return "playlist-empty"
	case OutcomeImageNotFound:
		return "image-not-found"
	default:
		return "unknown"
	}
}

// StartRequest describes a rotation start.
type StartRequest struct {
	PlaylistID          models.PlaylistID
	CanvasURL           string
	CronIntervalInHours models.Hour
	QuietHours          *models.QuietHours
}

// StartResult is the outcome of Start.
type StartResult struct {
	Kind OutcomeKind // OutcomeSuccess or OutcomePlaylistEmpty
	ID   models.PlaylistID
}

// NextImageResult is the outcome of NextImage.
type NextImageResult struct {
	Kind        OutcomeKind
	ImageID     models.ImageID
	Image       models.PhotoEntry
	DisplayedAt time.Time
}

// StopResult is the outcome of Stop.
type StopResult struct {
	Kind OutcomeKind // OutcomeSuccess or OutcomePlaylistNotFound
}

// keyedMutex serializes engine calls per playlist id, so two concurrent
// pulls cannot consume the same pool entry.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[models.PlaylistID]*sync.Mutex
}

func (k *keyedMutex) acquire(id models.PlaylistID) *sync.Mutex {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[models.PlaylistID]*sync.Mutex)
	}
	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()
	lock.Lock()
	return lock
}

// Engine drives playlist rotation over the file store.
type Engine struct {
	store     *fstore.Store
	library   Library
	device    DeviceController
	bus       *events.Bus
	serverURL string
	logger    zerolog.Logger
	locks     keyedMutex

	nowFn  func() time.Time
	randFn func(n int) int
}

// NewEngine creates the rotation engine. serverURL is the public callback
// URL the frame pulls from.
func NewEngine(store *fstore.Store, library Library, device DeviceController, bus *events.Bus, serverURL string, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		library:   library,
		device:    device,
		bus:       bus,
		serverURL: serverURL,
		logger:    logger.With().Str("component", "playlist").Logger(),
		nowFn:     time.Now,
		randFn:    rand.Intn,
	}
}

// Start begins a rotation: the playlist record is written with the full
// image set as its pool, then the device is woken with the server callback
// URL and the current instant as its cron time. An empty image set is
// rejected without any state change or device call.
func (e *Engine) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	lock := e.locks.acquire(req.PlaylistID)
	defer lock.Unlock()

	ids, err := e.library.AllImageIDs()
	if err != nil {
		return StartResult{}, err
	}
	if len(ids) == 0 {
		return StartResult{Kind: OutcomePlaylistEmpty}, nil
	}

	record := models.Playlist{
		ID:                  req.PlaylistID,
		Status:              models.PlaylistInProgress,
		CanvasURL:           req.CanvasURL,
		CronIntervalInHours: req.CronIntervalInHours,
		AvailableImagesID:   ids,
		QuietHours:          req.QuietHours,
	}
	if err := fstore.Save(e.store, fstore.PlaylistKey(req.PlaylistID), record); err != nil {
		return StartResult{}, err
	}

	if err := e.device.WakeUp(ctx, req.CanvasURL, e.serverURL, e.nowFn()); err != nil {
		return StartResult{}, err
	}

	e.logger.Info().
		Str("playlist_id", string(req.PlaylistID)).
		Int("pool_size", len(ids)).
		Msg("playlist started")
	e.bus.Publish(events.EventPlaylistStarted, events.Payload{
		"playlist_id": string(req.PlaylistID),
		"pool_size":   len(ids),
	})

	return StartResult{Kind: OutcomeSuccess, ID: req.PlaylistID}, nil
}

// NextImage advances the rotation by one pull. Within one cycle through the
// pool no image repeats; an exhausted pool is refilled from the full
// current image set rather than failing.
func (e *Engine) NextImage(ctx context.Context, id models.PlaylistID) (NextImageResult, error) {
	lock := e.locks.acquire(id)
	defer lock.Unlock()

	record, found, err := fstore.Load(e.store, fstore.PlaylistKey(id), models.Playlist{})
	if err != nil {
		return NextImageResult{}, err
	}
	if !found || record.ID == "" {
		return NextImageResult{Kind: OutcomePlaylistNotFound}, nil
	}
	if record.Status == models.PlaylistStopped {
		return NextImageResult{Kind: OutcomePlaylistStopped}, nil
	}

	if len(record.AvailableImagesID) == 0 {
		// Loop forever: pool exhaustion refills from the full current set.
		ids, err := e.library.AllImageIDs()
		if err != nil {
			return NextImageResult{}, err
		}
		if len(ids) == 0 {
			return NextImageResult{Kind: OutcomePlaylistEmpty}, nil
		}
		record.AvailableImagesID = ids
	}

	pick := e.pickNext(record.AvailableImagesID)
	entry, ok, err := e.library.Resolve(pick)
	if err != nil {
		return NextImageResult{}, err
	}
	if !ok {
		// Pool is left untouched: the device's next pull retries.
		return NextImageResult{Kind: OutcomeImageNotFound}, nil
	}

	record.AvailableImagesID = record.RemoveFromPool(pick)
	if err := fstore.Save(e.store, fstore.PlaylistKey(id), record); err != nil {
		return NextImageResult{}, err
	}

	displayedAt := e.nowFn().Add(record.CronIntervalInHours.Duration())
	if record.QuietHours != nil {
		displayedAt = AdjustForQuietHours(displayedAt, *record.QuietHours)
	}

	e.logger.Debug().
		Str("playlist_id", string(id)).
		Str("image_id", string(pick)).
		Int("pool_remaining", len(record.AvailableImagesID)).
		Time("displayed_at", displayedAt).
		Msg("rotation advanced")
	e.bus.Publish(events.EventImageServed, events.Payload{
		"playlist_id": string(id),
		"image_id":    string(pick),
	})

	return NextImageResult{
		Kind:        OutcomeSuccess,
		ImageID:     pick,
		Image:       entry,
		DisplayedAt: displayedAt,
	}, nil
}

// Stop flips the playlist to its terminal status and puts the device to
// sleep. The record is kept; only start overwrites it.
func (e *Engine) Stop(ctx context.Context, id models.PlaylistID) (StopResult, error) {
	lock := e.locks.acquire(id)
	defer lock.Unlock()

	record, found, err := fstore.Load(e.store, fstore.PlaylistKey(id), models.Playlist{})
	if err != nil {
		return StopResult{}, err
	}
	if !found || record.ID == "" {
		return StopResult{Kind: OutcomePlaylistNotFound}, nil
	}

	record.Status = models.PlaylistStopped
	if err := fstore.Save(e.store, fstore.PlaylistKey(id), record); err != nil {
		return StopResult{}, err
	}

	if err := e.device.Sleep(ctx, record.CanvasURL, e.serverURL); err != nil {
		// State is already stopped; the device simply polls one extra time
		// and receives the stop envelope.
		e.logger.Warn().Err(err).Str("playlist_id", string(id)).Msg("canvas sleep failed")
	}

	e.logger.Info().Str("playlist_id", string(id)).Msg("playlist stopped")
	e.bus.Publish(events.EventPlaylistStopped, events.Payload{"playlist_id": string(id)})

	return StopResult{Kind: OutcomeSuccess}, nil
}

// pickNext selects the next pool entry. With shuffle on (the default) the
// pick is uniform; with shuffle off the pool's insertion order is served
// front to back, so the rotation is deterministic across cycles.
func (e *Engine) pickNext(pool []models.ImageID) models.ImageID {
	if len(pool) == 1 {
		return pool[0]
	}
	if settings, err := e.library.Settings(); err == nil && !settings.Shuffle {
		return pool[0]
	}
	return pool[e.randFn(len(pool))]
}
