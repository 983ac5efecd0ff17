/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"time"

	"github.com/friendsincode/canvas_frame/internal/models"
)

// AdjustForQuietHours defers a candidate display instant out of the quiet
// window. The window [start, end) is expressed as local wall-clock hour
// boundaries in the configured timezone and may wrap midnight
// (start > end). An instant outside the window is returned unchanged; one
// inside is moved forward to land exactly on the window's end boundary,
// the minimal shift that clears it.
func AdjustForQuietHours(t time.Time, qh models.QuietHours) time.Time {
	if !qh.Enabled {
		return t
	}
	start, end := int(qh.Start), int(qh.End)
	if start == end {
		// Zero-width window, nothing to defer.
		return t
	}

	loc := qh.Timezone.Location()
	local := t.In(loc)
	hour := local.Hour()

	if !insideWindow(hour, start, end) {
		return t
	}

	boundary := time.Date(local.Year(), local.Month(), local.Day(), end, 0, 0, 0, loc)
	if start > end && hour >= start {
		// Evening side of a midnight-wrapping window: the end boundary is
		// tomorrow's.
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}

func insideWindow(hour, start, end int) bool {
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
