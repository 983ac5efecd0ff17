/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

// Version is the current version of Canvas Frame.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/canvas_frame/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the git commit the binary was built from, set via ldflags.
var Commit = "unknown"

// String renders the version for logs and the CLI.
func String() string {
	if Commit == "unknown" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
