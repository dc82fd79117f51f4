// Package collector gathers per-session evidence into an incident's raw directory.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/forensics/internal/metrics"
	"github.com/sentinelvnc/sentinel/forensics/pkg/integrity"
	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

const (
	defaultScreenshots   = 5
	defaultClipboardTail = 20
)

type placeholder struct {
	filename string
	content  string
}

var (
	screenshotMissing = placeholder{"placeholder_screenshot.png", "placeholder screenshot"}
	clipboardMissing  = placeholder{"placeholder_clipboard.txt", "clipboard source missing"}
	networkMissing    = placeholder{"placeholder_network.json", "network meta source missing"}
	networkEmpty      = placeholder{"placeholder_network.json", "network meta empty"}
)

// Collector copies session sources named by artifact refs into raw evidence.
type Collector struct {
	layout storage.Layout
	logger *slog.Logger
}

// New creates a Collector over the given layout.
func New(layout storage.Layout, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{layout: layout, logger: logger.With(slog.String(logging.FieldComponent, "collector"))}
}

// Collect gathers every ref in order and returns the artifacts together with
// the Merkle root over their hashes. A missing source never fails the
// collection; it produces a placeholder artifact instead.
func (c *Collector) Collect(ctx context.Context, incidentID, sessionID string, refs []models.ArtifactRef) ([]models.ArtifactInfo, string, error) {
	rawDir, err := c.layout.RawDir(incidentID)
	if err != nil {
		return nil, "", err
	}

	names := nameSet{}
	artifacts := make([]models.ArtifactInfo, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		var got []models.ArtifactInfo
		switch ref.Type {
		case models.ArtifactScreenshot:
			got, err = c.collectScreenshots(sessionID, ref, rawDir, names)
		case models.ArtifactClipboard:
			got, err = c.collectClipboard(sessionID, ref, rawDir, names)
		case models.ArtifactNetworkMeta:
			got, err = c.collectNetworkMeta(sessionID, ref, rawDir, names)
		default:
			c.logger.Warn("skipping unknown artifact type",
				logging.IncidentID(incidentID),
				slog.String("type", string(ref.Type)))
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("collect %s: %w", ref.Type, err)
		}
		artifacts = append(artifacts, got...)
	}

	hashes := make([]string, len(artifacts))
	for i, a := range artifacts {
		hashes[i] = a.SHA256
		metrics.ArtifactsTotal.WithLabelValues(string(a.Type)).Inc()
	}
	return artifacts, integrity.MerkleRoot(hashes), nil
}

func (c *Collector) collectScreenshots(sessionID string, ref models.ArtifactRef, rawDir string, names nameSet) ([]models.ArtifactInfo, error) {
	src := c.layout.ScreenshotsDir(sessionID)
	files, err := storage.ListFiles(src)
	if errors.Is(err, storage.ErrSourceMissing) || (err == nil && len(files) == 0) {
		c.logger.Warn("screenshot source missing", logging.SessionID(sessionID), slog.String("path", src))
		return c.placeholder(rawDir, names, ref, screenshotMissing)
	}
	if err != nil {
		return nil, err
	}

	if n := parseLastN(ref.Ref, defaultScreenshots); len(files) > n {
		files = files[len(files)-n:]
	}

	artifacts := make([]models.ArtifactInfo, 0, len(files))
	for i, f := range files {
		info, err := c.copyArtifact(f, rawDir, names, fmt.Sprintf("screenshot_%d%s", i+1, filepath.Ext(f)), ref)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, info)
	}
	return artifacts, nil
}

func (c *Collector) collectClipboard(sessionID string, ref models.ArtifactRef, rawDir string, names nameSet) ([]models.ArtifactInfo, error) {
	src := c.layout.ClipboardLog(sessionID)
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("clipboard source missing", logging.SessionID(sessionID), slog.String("path", src))
		return c.placeholder(rawDir, names, ref, clipboardMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}

	lines := splitLines(strings.ToValidUTF8(string(data), ""))
	var tail string
	if len(lines) > 0 {
		if n := parseLastN(ref.Ref, defaultClipboardTail); len(lines) > n {
			lines = lines[len(lines)-n:]
		}
		tail = strings.Join(lines, "\n") + "\n"
	}

	info, err := c.writeArtifact(rawDir, names, "clipboard_tail.txt", []byte(tail), ref)
	if err != nil {
		return nil, err
	}
	return []models.ArtifactInfo{info}, nil
}

func (c *Collector) collectNetworkMeta(sessionID string, ref models.ArtifactRef, rawDir string, names nameSet) ([]models.ArtifactInfo, error) {
	src := c.layout.NetworkDir(sessionID)
	files, err := storage.ListFiles(src)
	if errors.Is(err, storage.ErrSourceMissing) {
		c.logger.Warn("network metadata source missing", logging.SessionID(sessionID), slog.String("path", src))
		return c.placeholder(rawDir, names, ref, networkMissing)
	}
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		c.logger.Warn("network metadata source empty", logging.SessionID(sessionID), slog.String("path", src))
		return c.placeholder(rawDir, names, ref, networkEmpty)
	}

	artifacts := make([]models.ArtifactInfo, 0, len(files))
	for i, f := range files {
		info, err := c.copyArtifact(f, rawDir, names, fmt.Sprintf("network_%d%s", i+1, filepath.Ext(f)), ref)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, info)
	}
	return artifacts, nil
}

func (c *Collector) copyArtifact(src, rawDir string, names nameSet, name string, ref models.ArtifactRef) (models.ArtifactInfo, error) {
	name = names.claim(name)
	dst := filepath.Join(rawDir, name)
	size, err := storage.CopyFile(src, dst)
	if err != nil {
		return models.ArtifactInfo{}, err
	}
	return c.describe(dst, name, size, ref, false)
}

func (c *Collector) writeArtifact(rawDir string, names nameSet, name string, data []byte, ref models.ArtifactRef) (models.ArtifactInfo, error) {
	name = names.claim(name)
	dst := filepath.Join(rawDir, name)
	size, err := storage.WriteFile(dst, data)
	if err != nil {
		return models.ArtifactInfo{}, err
	}
	return c.describe(dst, name, size, ref, false)
}

func (c *Collector) placeholder(rawDir string, names nameSet, ref models.ArtifactRef, p placeholder) ([]models.ArtifactInfo, error) {
	name := names.claim(p.filename)
	dst := filepath.Join(rawDir, name)
	size, err := storage.WriteFile(dst, []byte(p.content))
	if err != nil {
		return nil, err
	}
	info, err := c.describe(dst, name, size, ref, true)
	if err != nil {
		return nil, err
	}
	metrics.PlaceholdersTotal.WithLabelValues(string(ref.Type)).Inc()
	return []models.ArtifactInfo{info}, nil
}

// describe hashes the written copy, not the source, so the manifest reflects
// exactly what sits in raw evidence.
func (c *Collector) describe(path, name string, size int64, ref models.ArtifactRef, missing bool) (models.ArtifactInfo, error) {
	sum, err := integrity.HashFile(path)
	if err != nil {
		return models.ArtifactInfo{}, err
	}
	return models.ArtifactInfo{
		Filename:      name,
		SHA256:        sum,
		SizeBytes:     size,
		Type:          ref.Type,
		Source:        ref.Source,
		SourceMissing: missing,
	}, nil
}

// nameSet tracks the raw filenames handed out during one collection. Several
// refs of the same type would otherwise overwrite each other's copies and
// leave earlier manifest rows describing bytes no longer on disk.
type nameSet map[string]struct{}

// claim sanitizes name and, when it is already taken, appends -2, -3, ...
// before the extension.
func (n nameSet) claim(name string) string {
	name = storage.SanitizeName(name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; ; i++ {
		if _, taken := n[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	n[candidate] = struct{}{}
	return candidate
}

// parseLastN reads hints like "last_5". Anything else, including a
// non-positive count, yields def.
func parseLastN(ref string, def int) int {
	rest, ok := strings.CutPrefix(ref, "last_")
	if !ok {
		return def
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// splitLines splits on \n, \r\n and \r. A trailing line break does not
// produce an empty final line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
