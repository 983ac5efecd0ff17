/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package canvas

import "time"

// Envelope is the frame's expected pull response. The HTTP transport always
// answers 200; the embedded status field is what the firmware parses.
type Envelope struct {
	Status  int          `json:"status"`
	Type    string       `json:"type,omitempty"`
	Message string       `json:"message"`
	Data    EnvelopeData `json:"data"`
}

// EnvelopeData carries the scheduling fields of an envelope. A null
// next_cron_time means "stop pulling".
type EnvelopeData struct {
	NextCronTime *string `json:"next_cron_time"`
	ImageURL     string  `json:"image_url,omitempty"`
}

// ShowImage builds the success envelope: display imageURL, pull again at
// nextCron.
func ShowImage(serverURL, imagePath string, nextCron time.Time) Envelope {
	cron := FormatTime(nextCron)
	return Envelope{
		Status:  200,
		Type:    "SHOW",
		Message: "Image retrieved successfully",
		Data: EnvelopeData{
			NextCronTime: &cron,
			ImageURL:     serverURL + imagePath,
		},
	}
}

// NoImageAvailable builds the empty-rotation envelope. The device keeps its
// schedule and retries at nextCron.
func NoImageAvailable(nextCron time.Time) Envelope {
	cron := FormatTime(nextCron)
	return Envelope{
		Status:  204,
		Message: "No image available",
		Data:    EnvelopeData{NextCronTime: &cron},
	}
}

// ImageUnavailable builds the transient-failure envelope, distinct from
// stop: the picked image could not be resolved, retry shortly.
func ImageUnavailable(nextCron time.Time) Envelope {
	cron := FormatTime(nextCron)
	return Envelope{
		Status:  204,
		Message: "Image unavailable, retry shortly",
		Data:    EnvelopeData{NextCronTime: &cron},
	}
}

// StopPulling builds the envelope telling the device to cease scheduled
// polling.
func StopPulling() Envelope {
	return Envelope{
		Status:  200,
		Message: "Stopping scheduled pull",
		Data:    EnvelopeData{NextCronTime: nil},
	}
}
