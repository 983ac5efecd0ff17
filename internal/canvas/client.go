/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package canvas talks to the physical e-ink frame and shapes the wire
// envelopes it expects.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// canvasTimeLayout is ISO-8601 UTC truncated to whole seconds. The frame
// firmware rejects fractional seconds.
const canvasTimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders an instant the way the frame expects it.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(canvasTimeLayout)
}

// Client issues device-facing configuration calls.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a device client.
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "canvas").Logger(),
	}
}

// pullSettings is the frame's upstream configuration payload.
type pullSettings struct {
	UpstreamOn  bool    `json:"upstream_on"`
	UpstreamURL string  `json:"upstream_url"`
	Token       *string `json:"token"`
	CronTime    *string `json:"cron_time"`
}

// WakeUp tells the frame to start pulling from serverURL, with cron as its
// next scheduled pull time.
func (c *Client) WakeUp(ctx context.Context, canvasURL, serverURL string, cron time.Time) error {
	cronTime := FormatTime(cron)
	c.logger.Info().Str("canvas_url", canvasURL).Str("cron_time", cronTime).Msg("waking canvas")
	return c.configure(ctx, canvasURL, pullSettings{
		UpstreamOn:  true,
		UpstreamURL: serverURL,
		CronTime:    &cronTime,
	})
}

// Sleep tells the frame to stop pulling without touching playlist state.
func (c *Client) Sleep(ctx context.Context, canvasURL, serverURL string) error {
	c.logger.Info().Str("canvas_url", canvasURL).Msg("putting canvas to sleep")
	return c.configure(ctx, canvasURL, pullSettings{
		UpstreamOn:  false,
		UpstreamURL: serverURL,
	})
}

func (c *Client) configure(ctx context.Context, canvasURL string, settings pullSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode pull settings: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, canvasURL+"/upstream/pull_settings", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build canvas request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("configure canvas: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("configure canvas: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
