/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"testing"
	"time"

	"github.com/friendsincode/canvas_frame/internal/models"
)

func mustQuietHours(t *testing.T, tz string, start, end int) models.QuietHours {
	t.Helper()
	qh, err := models.ParseQuietHours(models.QuietHoursInput{Enabled: true, Timezone: tz, Start: start, End: end})
	if err != nil {
		t.Fatalf("parse quiet hours: %v", err)
	}
	return qh
}

func TestAdjustForQuietHoursDisabledIsNoOp(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 22, 6)
	qh.Enabled = false

	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(at) {
		t.Fatalf("disabled window must not shift, got %v", got)
	}
}

func TestAdjustForQuietHoursOutsideWindowUnchanged(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 22, 6)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(at) {
		t.Fatalf("noon is outside 22-6, got %v", got)
	}

	// The end boundary itself is outside the half-open window.
	at = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(at) {
		t.Fatalf("06:00 is outside [22,6), got %v", got)
	}
}

func TestAdjustForQuietHoursEveningSideOfMidnightWrap(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 22, 6)

	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	want := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAdjustForQuietHoursMorningSideOfMidnightWrap(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 22, 6)

	at := time.Date(2026, 3, 10, 3, 15, 42, 0, time.UTC)
	want := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAdjustForQuietHoursNonWrappingWindow(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 9, 17)

	at := time.Date(2026, 3, 10, 10, 45, 0, 0, time.UTC)
	want := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	at = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(at) {
		t.Fatalf("evening is outside 9-17, got %v", got)
	}
}

func TestAdjustForQuietHoursZeroWidthWindow(t *testing.T) {
	qh := mustQuietHours(t, "UTC", 8, 8)

	at := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	if got := AdjustForQuietHours(at, qh); !got.Equal(at) {
		t.Fatalf("start==end must be a no-op, got %v", got)
	}
}

func TestAdjustForQuietHoursHonorsTimezone(t *testing.T) {
	qh := mustQuietHours(t, "Europe/Berlin", 22, 6)

	// 22:30 UTC in winter is 23:30 in Berlin: inside the window there.
	at := time.Date(2026, 1, 10, 22, 30, 0, 0, time.UTC)
	got := AdjustForQuietHours(at, qh)

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	want := time.Date(2026, 1, 11, 6, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
