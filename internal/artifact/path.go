// Package artifact implements the Artifact Store (spec.md §4.4):
// deterministic path generation, atomic write, content hashing,
// optional gzip, and unified-diff generation.
package artifact

import (
	"path/filepath"
	"strings"
	"time"

	"firestige.xyz/netbackup/internal/models"
)

// CommandSlug replaces spaces and hyphens with underscores, matching
// spec.md §3's artifact naming scheme.
func CommandSlug(command string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return replacer.Replace(command)
}

// Path computes the deterministic artifact path for a capture taken
// at startedAt, per spec.md §3:
//
//	<root>/<device_slug>/<yyyymmdd_HHMMSS>_<command_slug>.txt
func Path(root string, device models.Device, startedAt time.Time, command string) string {
	ts := startedAt.UTC().Format("20060102_150405")
	name := ts + "_" + CommandSlug(command) + ".txt"
	return filepath.Join(root, device.Slug(), name)
}

// GzipPath appends the .gz suffix applied when compression is enabled.
func GzipPath(path string) string {
	return path + ".gz"
}

// DiffPath is the sibling path for a unified diff of an artifact.
func DiffPath(artifactPath string) string {
	base := strings.TrimSuffix(artifactPath, ".gz")
	return base + ".diff"
}
