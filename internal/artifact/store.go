package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
)

// Result describes a persisted capture.
type Result struct {
	Path       string
	SHA256     string
	SizeBytes  int64
	Compressed bool
}

// Store persists raw device output under root, named per Path, using
// an atomic write (temp file + fsync + rename) so a concurrent reader
// never observes a partially-written artifact — grounded on the
// teacher's task store Save(), which uses the same temp-then-rename
// pattern for crash-safe persistence.
type Store struct {
	Root     string
	Compress bool
}

// NewStore builds a Store rooted at root.
func NewStore(root string, compress bool) *Store {
	return &Store{Root: root, Compress: compress}
}

// Save decodes raw device output to UTF-8, writes it to the artifact
// path computed from device/startedAt/command, and returns the
// resulting path, size-on-disk, and content hash (spec.md §4.4 step 5:
// "Return path, size-on-disk, hash"). The hash is computed over the
// canonical decoded content; SizeBytes is always the size of the file
// actually written to finalPath, so it reflects the gzipped size when
// compression is enabled.
func (s *Store) Save(path string, raw []byte) (Result, error) {
	text := decodeText(raw)
	content := []byte(text)

	sum := sha256.Sum256(content)
	res := Result{
		SHA256:    hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(content)),
	}

	finalPath := path
	if s.Compress {
		finalPath = GzipPath(path)
		res.Compressed = true
	}
	res.Path = finalPath

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("artifact: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(finalPath), ".artifact-*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if writeErr := s.writeContent(tmp, content); writeErr != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("artifact: write: %w", writeErr)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("artifact: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("artifact: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return Result{}, fmt.Errorf("artifact: rename: %w", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return Result{}, fmt.Errorf("artifact: stat: %w", err)
	}
	res.SizeBytes = info.Size()

	return res, nil
}

func (s *Store) writeContent(w io.Writer, content []byte) error {
	if !s.Compress {
		_, err := w.Write(content)
		return err
	}
	gz := pgzip.NewWriter(w)
	if _, err := gz.Write(content); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Read loads an artifact's decoded text content, transparently
// ungzipping when the path ends in .gz.
func Read(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("artifact: open gzip: %w", err)
		}
		defer gz.Close()
		b, err := io.ReadAll(gz)
		if err != nil {
			return "", err
		}
		return decodeText(b), nil
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return decodeText(b), nil
}
