/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Environment:      "development",
		HTTPBind:         "127.0.0.1",
		HTTPPort:         0,
		ServerURL:        "http://frame.local:8080",
		CanvasURL:        "http://canvas.local",
		DefaultCronHours: 2,
		DataDir:          t.TempDir(),
		MaxUploadSizeMB:  4,
	}

	srv, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestMetricsEndpointIsMounted(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestBatteryReportMiddlewareCapturesQueryParam(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz?battery=88", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/canvas/battery", nil)
	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("battery status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"percentage":88`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestBatteryReportMiddlewareIgnoresGarbage(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz?battery=banana", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/canvas/battery", nil)
	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), "battery-unavailable") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
