/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFormatTimeIsUTCWholeSeconds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	at := time.Date(2026, 1, 2, 4, 4, 5, 987654321, loc)

	if got := FormatTime(at); got != "2026-01-02T03:04:05Z" {
		t.Fatalf("FormatTime = %q", got)
	}
}

func TestShowImageEnvelope(t *testing.T) {
	next := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	env := ShowImage("http://frame.local:8080", "/images/abc.jpg", next)

	if env.Status != 200 || env.Type != "SHOW" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Data.ImageURL != "http://frame.local:8080/images/abc.jpg" {
		t.Fatalf("image url = %q", env.Data.ImageURL)
	}
	if env.Data.NextCronTime == nil || *env.Data.NextCronTime != "2026-03-10T14:00:00Z" {
		t.Fatalf("next cron = %v", env.Data.NextCronTime)
	}
}

func TestEmptyAndUnavailableEnvelopesKeepTheSchedule(t *testing.T) {
	next := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	for _, env := range []Envelope{NoImageAvailable(next), ImageUnavailable(next)} {
		if env.Status != 204 {
			t.Fatalf("status = %d, want 204", env.Status)
		}
		if env.Data.NextCronTime == nil {
			t.Fatal("retryable envelope must carry a next cron time")
		}
		if env.Data.ImageURL != "" {
			t.Fatalf("unexpected image url %q", env.Data.ImageURL)
		}
	}
}

func TestStopPullingEnvelopeSerializesNullCronTime(t *testing.T) {
	raw, err := json.Marshal(StopPulling())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"next_cron_time":null`) {
		t.Fatalf("stop envelope must carry an explicit null cron time: %s", raw)
	}
}

func TestWakeUpSendsPullSettings(t *testing.T) {
	var got pullSettings
	var gotPath, gotMethod string
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode pull settings: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer device.Close()

	c := NewClient(zerolog.Nop())
	cron := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := c.WakeUp(context.Background(), device.URL, "http://frame.local:8080", cron); err != nil {
		t.Fatalf("wake up: %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/upstream/pull_settings" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if !got.UpstreamOn {
		t.Fatal("wake up must enable upstream pulling")
	}
	if got.UpstreamURL != "http://frame.local:8080" {
		t.Fatalf("upstream url = %q", got.UpstreamURL)
	}
	if got.Token != nil {
		t.Fatal("token must be null")
	}
	if got.CronTime == nil || *got.CronTime != "2026-03-10T12:00:00Z" {
		t.Fatalf("cron time = %v", got.CronTime)
	}
}

func TestSleepDisablesUpstream(t *testing.T) {
	var got pullSettings
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode pull settings: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer device.Close()

	c := NewClient(zerolog.Nop())
	if err := c.Sleep(context.Background(), device.URL, "http://frame.local:8080"); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	if got.UpstreamOn {
		t.Fatal("sleep must disable upstream pulling")
	}
	if got.CronTime != nil {
		t.Fatalf("sleep must not schedule a pull, got %v", got.CronTime)
	}
}

func TestConfigureReportsDeviceErrors(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "firmware busy", http.StatusServiceUnavailable)
	}))
	defer device.Close()

	c := NewClient(zerolog.Nop())
	err := c.Sleep(context.Background(), device.URL, "http://frame.local:8080")
	if err == nil {
		t.Fatal("expected device error to propagate")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("error should carry the status code: %v", err)
	}
}

func TestBatteryCacheStampsFullCharge(t *testing.T) {
	cache := NewBatteryCache()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.nowFn = func() time.Time { return now }

	if _, ok := cache.Snapshot(); ok {
		t.Fatal("fresh cache must report no battery state")
	}

	cache.Record(55)
	battery, ok := cache.Snapshot()
	if !ok || battery.Percentage != 55 {
		t.Fatalf("snapshot = %+v ok=%v", battery, ok)
	}
	if battery.LastFullChargeDate != nil {
		t.Fatal("partial charge must not stamp a full-charge date")
	}

	cache.Record(100)
	battery, _ = cache.Snapshot()
	if battery.LastFullChargeDate == nil || !battery.LastFullChargeDate.Equal(now) {
		t.Fatalf("full charge stamp = %v", battery.LastFullChargeDate)
	}

	// A later partial report keeps the stamp.
	cache.Record(80)
	battery, _ = cache.Snapshot()
	if battery.Percentage != 80 {
		t.Fatalf("percentage = %d", battery.Percentage)
	}
	if battery.LastFullChargeDate == nil || !battery.LastFullChargeDate.Equal(now) {
		t.Fatalf("stamp must carry over, got %v", battery.LastFullChargeDate)
	}
}
