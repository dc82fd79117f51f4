// Package storage maps incidents and sessions onto the filesystem and copies
// evidence into an incident's raw directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	rawDirName      = "raw"
	manifestDirName = "manifest"
)

var (
	unsafeNameRe    = regexp.MustCompile(`[^a-z0-9_.-]+`)
	unsafeSegmentRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)
)

// SanitizeName normalizes an artifact filename: trimmed, lowercased, and every
// run of characters outside [a-z0-9_.-] replaced with a single underscore.
func SanitizeName(name string) string {
	return unsafeNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// SafeSegment makes an identifier usable as a single path segment. Case is kept
// so ids stay recognizable; dot-only and empty results collapse to "_".
func SafeSegment(id string) string {
	s := unsafeSegmentRe.ReplaceAllString(strings.TrimSpace(id), "_")
	if strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}

// Layout resolves evidence and source locations.
//
//	<data_root>/<incident>/raw/<artifact>
//	<data_root>/<incident>/manifest/{manifest.json,merkle_root.txt,anchor_tx.txt}
//	<sources_root>/visual/<session>/screenshots/
//	<sources_root>/app/<session>/clipboard.log
//	<sources_root>/network/<session>/
type Layout struct {
	DataRoot    string
	SourcesRoot string
}

// NewLayout returns a Layout rooted at the given directories.
func NewLayout(dataRoot, sourcesRoot string) Layout {
	return Layout{DataRoot: dataRoot, SourcesRoot: sourcesRoot}
}

// IncidentDir is the root of an incident's evidence.
func (l Layout) IncidentDir(incidentID string) string {
	return filepath.Join(l.DataRoot, SafeSegment(incidentID))
}

// RawDir returns the incident's raw evidence directory, creating it if needed.
func (l Layout) RawDir(incidentID string) (string, error) {
	return ensureDir(filepath.Join(l.IncidentDir(incidentID), rawDirName))
}

// ManifestDir returns the incident's manifest directory, creating it if needed.
func (l Layout) ManifestDir(incidentID string) (string, error) {
	return ensureDir(l.ManifestPath(incidentID))
}

// ManifestPath is the manifest directory without creating it.
func (l Layout) ManifestPath(incidentID string) string {
	return filepath.Join(l.IncidentDir(incidentID), manifestDirName)
}

// RawPath is the raw directory without creating it.
func (l Layout) RawPath(incidentID string) string {
	return filepath.Join(l.IncidentDir(incidentID), rawDirName)
}

// ScreenshotsDir is where the visual detector keeps a session's screenshots.
func (l Layout) ScreenshotsDir(sessionID string) string {
	return filepath.Join(l.SourcesRoot, "visual", SafeSegment(sessionID), "screenshots")
}

// ClipboardLog is the app detector's clipboard log for a session.
func (l Layout) ClipboardLog(sessionID string) string {
	return filepath.Join(l.SourcesRoot, "app", SafeSegment(sessionID), "clipboard.log")
}

// NetworkDir holds the proxy's network metadata for a session.
func (l Layout) NetworkDir(sessionID string) string {
	return filepath.Join(l.SourcesRoot, "network", SafeSegment(sessionID))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}
