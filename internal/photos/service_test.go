/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package photos

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/events"
	"github.com/friendsincode/canvas_frame/internal/fstore"
	"github.com/friendsincode/canvas_frame/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := fstore.New(t.TempDir(), zerolog.Nop())
	return NewService(store, events.NewBus(), zerolog.Nop())
}

func TestUploadStoresBlobAndIndexEntry(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Upload(models.OrientationPortrait, []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.URL != "/images/"+string(result.ID)+".jpg" {
		t.Fatalf("url = %q", result.URL)
	}

	data, err := svc.Image(result.Entry.File)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("read back %q", data)
	}

	entry, found, err := svc.Resolve(result.ID)
	if err != nil || !found {
		t.Fatalf("resolve: found=%v err=%v", found, err)
	}
	if entry.Orientation != models.OrientationPortrait {
		t.Fatalf("orientation = %q", entry.Orientation)
	}
	if entry.AddedAt.IsZero() {
		t.Fatal("addedAt must be stamped")
	}
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Upload(models.OrientationLandscape, nil); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("err = %v, want ErrEmptyBody", err)
	}
	if count, _ := svc.Count(); count != 0 {
		t.Fatalf("count = %d after rejected upload", count)
	}
}

func TestAllImageIDsPreservesInsertionOrder(t *testing.T) {
	svc := newTestService(t)

	var want []models.ImageID
	for i := 0; i < 3; i++ {
		result, err := svc.Upload(models.OrientationLandscape, []byte{byte(i + 1)})
		if err != nil {
			t.Fatalf("upload #%d: %v", i, err)
		}
		want = append(want, result.ID)
	}

	got, err := svc.AllImageIDs()
	if err != nil {
		t.Fatalf("all ids: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveUnknownID(t *testing.T) {
	svc := newTestService(t)

	_, found, err := svc.Resolve(models.NewImageID())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if found {
		t.Fatal("unknown id must not resolve")
	}
}

func TestDeleteAllClearsBlobsAndIndex(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 3; i++ {
		if _, err := svc.Upload(models.OrientationPortrait, []byte{1}); err != nil {
			t.Fatalf("upload: %v", err)
		}
	}

	deleted, err := svc.DeleteAll()
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	count, err := svc.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d after delete", count)
	}
	ids, err := svc.AllImageIDs()
	if err != nil {
		t.Fatalf("all ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v after delete", ids)
	}
}

func TestParseUploadFilename(t *testing.T) {
	cases := []struct {
		raw     string
		want    models.Orientation
		wantErr error
	}{
		{raw: "vacation_P.jpg", want: models.OrientationPortrait},
		{raw: "vacation_L.jpeg", want: models.OrientationLandscape},
		{raw: "MiXeD_p.JPG", want: models.OrientationPortrait},
		{raw: "", wantErr: ErrInvalidFilename},
		{raw: "../escape_P.jpg", wantErr: ErrInvalidFilename},
		{raw: "photo_P.png", wantErr: ErrInvalidExtension},
		{raw: "photo.jpg", wantErr: ErrInvalidSuffix},
	}

	for _, tc := range cases {
		got, err := ParseUploadFilename(tc.raw)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseUploadFilename(%q) err = %v, want %v", tc.raw, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseUploadFilename(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseUploadFilename(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestUpdateSettingsPersistsPatch(t *testing.T) {
	svc := newTestService(t)

	six := 6
	off := false
	updated, err := svc.UpdateSettings(models.SettingsPatch{IntervalHours: &six, Shuffle: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IntervalHours != 6 || updated.Shuffle {
		t.Fatalf("updated = %+v", updated)
	}

	reloaded, err := svc.Settings()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded != updated {
		t.Fatalf("reloaded %+v, want %+v", reloaded, updated)
	}
}

func TestUpdateSettingsSkipsInvalidInterval(t *testing.T) {
	svc := newTestService(t)

	zero := 0
	updated, err := svc.UpdateSettings(models.SettingsPatch{IntervalHours: &zero})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IntervalHours != models.DefaultSettings().IntervalHours {
		t.Fatalf("invalid interval must keep the stored value, got %d", updated.IntervalHours)
	}
}
