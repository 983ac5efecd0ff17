/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: the device pull/signal protocol,
// the upload producer endpoints, and the settings and playlist controls.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/canvas"
	"github.com/friendsincode/canvas_frame/internal/config"
	"github.com/friendsincode/canvas_frame/internal/fstore"
	"github.com/friendsincode/canvas_frame/internal/models"
	"github.com/friendsincode/canvas_frame/internal/photos"
	"github.com/friendsincode/canvas_frame/internal/playlist"
	"github.com/friendsincode/canvas_frame/internal/telemetry"
)

// DefaultPlaylistID addresses the deployment's single rotation. The engine
// itself takes an explicit id on every call; this constant exists only at
// the HTTP boundary.
const DefaultPlaylistID = models.PlaylistID("8d0fc632-378b-4fac-903c-96b4feb7d1c4")

// retryDelay is the pull-again hint sent when a picked image failed to
// resolve.
const retryDelay = 5 * time.Minute

// API exposes HTTP handlers.
type API struct {
	cfg     *config.Config
	engine  *playlist.Engine
	photos  *photos.Service
	device  playlist.DeviceController
	battery *canvas.BatteryCache
	logger  zerolog.Logger
	nowFn   func() time.Time
}

// New creates the API handler set.
func New(cfg *config.Config, engine *playlist.Engine, photoSvc *photos.Service, device playlist.DeviceController, battery *canvas.BatteryCache, logger zerolog.Logger) *API {
	return &API{
		cfg:     cfg,
		engine:  engine,
		photos:  photoSvc,
		device:  device,
		battery: battery,
		logger:  logger.With().Str("component", "api").Logger(),
		nowFn:   time.Now,
	}
}

// Routes mounts the handlers on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Get("/", a.handleIndex)
	r.Get("/eink_pull", a.handleEinkPull)
	r.Get("/eink_signal", a.handleEinkSignal)
	r.Post("/upload", a.handleUpload)
	r.Delete("/images", a.handleDeleteAllPhotos)
	r.Delete("/photos", a.handleDeleteAllPhotos)
	r.Get("/images/{name}", a.handleImage)
	r.Get("/settings", a.handleSettingsGet)
	r.Put("/settings", a.handleSettingsPut)
	r.Route("/playlist", func(r chi.Router) {
		r.Post("/start", a.handlePlaylistStart)
		r.Post("/{playlistID}/stop", a.handlePlaylistStop)
	})
	r.Get("/canvas/battery", a.handleBattery)
}

type apiResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  200,
		"service": "canvas-frame",
		"endpoints": []string{
			"GET /eink_pull",
			"GET /eink_signal",
			"POST /upload?orientation=P|L",
			"GET /images/{name}",
			"DELETE /photos",
			"GET /settings",
			"PUT /settings",
			"POST /playlist/start",
			"GET /canvas/battery",
		},
	})
}

// handleEinkPull answers the frame's periodic "what next" poll. The
// transport always answers 200; the envelope's status field carries the
// device-facing outcome.
func (a *API) handleEinkPull(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.NextImage(r.Context(), DefaultPlaylistID)
	if err != nil {
		a.logger.Error().Err(err).Msg("pull failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}

	telemetry.PullOutcomes.WithLabelValues(result.Kind.String()).Inc()

	var envelope canvas.Envelope
	switch result.Kind {
	case playlist.OutcomeSuccess:
		envelope = canvas.ShowImage(a.cfg.ServerURL, "/images/"+result.Image.File, result.DisplayedAt)
	case playlist.OutcomePlaylistEmpty:
		envelope = canvas.NoImageAvailable(a.emptyPullCron())
	case playlist.OutcomeImageNotFound:
		envelope = canvas.ImageUnavailable(a.nowFn().Add(retryDelay))
	case playlist.OutcomePlaylistNotFound, playlist.OutcomePlaylistStopped:
		envelope = canvas.StopPulling()
	default:
		envelope = canvas.StopPulling()
	}

	writeJSON(w, http.StatusOK, envelope)
}

// emptyPullCron derives the retry time for an empty rotation from the
// stored interval settings.
func (a *API) emptyPullCron() time.Time {
	interval := models.DefaultSettings().IntervalHours
	if settings, err := a.photos.Settings(); err == nil {
		interval = settings.IntervalHours
	}
	return a.nowFn().Add(time.Duration(interval) * time.Hour)
}

// handleEinkSignal records the device's pull feedback and disables its
// upstream polling without touching playlist state.
func (a *API) handleEinkSignal(w http.ResponseWriter, r *http.Request) {
	if a.cfg.CanvasURL != "" {
		if err := a.device.Sleep(r.Context(), a.cfg.CanvasURL, a.cfg.ServerURL); err != nil {
			a.logger.Warn().Err(err).Msg("canvas sleep on signal failed")
		}
	}
	writeMessage(w, http.StatusOK, "Feedback recorded")
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	var orientation models.Orientation
	legacy := false

	if filename := r.URL.Query().Get("filename"); filename != "" {
		parsed, err := photos.ParseUploadFilename(filename)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		orientation = parsed
		legacy = true
	} else {
		parsed, err := models.ParseOrientation(r.URL.Query().Get("orientation"))
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		orientation = parsed
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadSizeBytes()))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Body too large or unreadable")
		return
	}

	result, err := a.photos.Upload(orientation, body)
	if err != nil {
		if errors.Is(err, photos.ErrEmptyBody) {
			writeMessage(w, http.StatusBadRequest, "No raw provided")
			return
		}
		a.logger.Error().Err(err).Msg("upload failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if legacy {
		writeJSON(w, http.StatusOK, map[string]string{"file": result.Entry.File})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Status: 200,
		Data:   map[string]string{"id": string(result.ID), "url": result.URL},
	})
}

func (a *API) handleDeleteAllPhotos(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.photos.DeleteAll()
	if err != nil {
		a.logger.Error().Err(err).Msg("delete all photos failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Status:  200,
		Message: "All photos deleted",
		Data:    map[string]int{"deletedFiles": deleted},
	})
}

func (a *API) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := a.photos.Image(name)
	if err != nil {
		if errors.Is(err, fstore.ErrUnsafeName) {
			writeMessage(w, http.StatusBadRequest, "Invalid path")
			return
		}
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := a.photos.Settings()
	if err != nil {
		a.logger.Error().Err(err).Msg("load settings failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: 200, Data: settings})
}

func (a *API) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid body")
		return
	}
	settings, err := a.photos.UpdateSettings(patch)
	if err != nil {
		a.logger.Error().Err(err).Msg("update settings failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: 200, Data: settings})
}

type playlistStartRequest struct {
	CanvasURL           string                  `json:"canvasUrl"`
	CronIntervalInHours int                     `json:"cronIntervalInHours"`
	QuietHours          *models.QuietHoursInput `json:"quietHours,omitempty"`
}

func (a *API) handlePlaylistStart(w http.ResponseWriter, r *http.Request) {
	var req playlistStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid body")
		return
	}

	canvasURL := req.CanvasURL
	if canvasURL == "" {
		canvasURL = a.cfg.CanvasURL
	}
	if canvasURL == "" {
		writeMessage(w, http.StatusBadRequest, "canvasUrl must be provided")
		return
	}

	intervalRaw := req.CronIntervalInHours
	if intervalRaw == 0 {
		intervalRaw = a.cfg.DefaultCronHours
	}
	interval, err := models.ParseHour(intervalRaw)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var quietHours *models.QuietHours
	if req.QuietHours != nil {
		parsed, err := models.ParseQuietHours(*req.QuietHours)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		quietHours = &parsed
	}

	result, err := a.engine.Start(r.Context(), playlist.StartRequest{
		PlaylistID:          DefaultPlaylistID,
		CanvasURL:           canvasURL,
		CronIntervalInHours: interval,
		QuietHours:          quietHours,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("playlist start failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if result.Kind == playlist.OutcomePlaylistEmpty {
		writeMessage(w, http.StatusBadRequest, "Playlist must have at least one image")
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Playlist %s started", result.ID))
}

func (a *API) handlePlaylistStop(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlaylistID(chi.URLParam(r, "playlistID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.engine.Stop(r.Context(), id)
	if err != nil {
		a.logger.Error().Err(err).Msg("playlist stop failed")
		writeMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if result.Kind == playlist.OutcomePlaylistNotFound {
		writeMessage(w, http.StatusNotFound, "Playlist not found")
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Playlist %s stopped", id))
}

func (a *API) handleBattery(w http.ResponseWriter, r *http.Request) {
	battery, ok := a.battery.Snapshot()
	if !ok {
		writeJSON(w, http.StatusOK, apiResponse{Status: 200, Data: "battery-unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: 200, Data: battery})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Status: status, Message: message})
}
