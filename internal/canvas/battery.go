/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package canvas

import (
	"sync"
	"time"

	"github.com/friendsincode/canvas_frame/internal/models"
)

// BatteryCache holds the last battery report from the device. It is a
// read-only projection, not authoritative engine state.
type BatteryCache struct {
	mu      sync.RWMutex
	battery *models.Battery
	nowFn   func() time.Time
}

// NewBatteryCache creates an empty cache.
func NewBatteryCache() *BatteryCache {
	return &BatteryCache{nowFn: time.Now}
}

// Record stores a reported percentage. A 100% report stamps the last full
// charge date; otherwise the previous stamp carries over.
func (b *BatteryCache) Record(p models.BatteryPercentage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lastFull *time.Time
	if b.battery != nil {
		lastFull = b.battery.LastFullChargeDate
	}
	if p == 100 {
		now := b.nowFn()
		lastFull = &now
	}
	b.battery = &models.Battery{Percentage: p, LastFullChargeDate: lastFull}
}

// Snapshot returns the cached battery state, or ok=false when the device
// has not reported yet.
func (b *BatteryCache) Snapshot() (models.Battery, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.battery == nil {
		return models.Battery{}, false
	}
	return *b.battery, true
}
