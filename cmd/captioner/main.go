// Package main implements the captioner CLI, which renders meme captions
// onto catalog templates one at a time or from a watched inbox.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"tools.zach/dev/captioner/internal/pipeline"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - make build: -X main.version=$(VERSION) -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state produce a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. Render
// failures get a status per error kind so scripts can tell a bad request
// from a broken install.
func exitCode(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindTemplateNotFound:
		return 3
	case pipeline.KindCaptionCountMismatch:
		return 4
	case pipeline.KindImageDecode:
		return 5
	case pipeline.KindEncodeOrWrite:
		return 6
	}
	var lockErr *lockHeldError
	if errors.As(err, &lockErr) {
		return 7
	}
	return 1
}
