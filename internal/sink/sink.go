// Package sink persists accepted content to disk. Writes are atomic with
// respect to concurrent readers: content lands in a temp file first and is
// renamed into place.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"copyloop/internal/content"

	"go.uber.org/zap"
)

// #region sink

// FileSink writes one file per subject/kind pair under a root directory.
// Re-accepting the same pair overwrites the previous output; every accepted
// version is also appended to a history file so nothing is lost.
type FileSink struct {
	root   string
	logger *zap.Logger
}

// NewFileSink creates the root directory if needed.
func NewFileSink(root string, logger *zap.Logger) (*FileSink, error) {
	if root == "" {
		return nil, fmt.Errorf("sink: output directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", root, err)
	}
	return &FileSink{root: root, logger: logger}, nil
}

// Write stores text as <root>/<subject-slug>/<kind>.txt atomically and
// appends a timestamped copy to <kind>.history.txt.
func (s *FileSink) Write(subject string, kind content.Kind, text string) error {
	dir := filepath.Join(s.root, slug(subject))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink: create %s: %w", dir, err)
	}

	final := filepath.Join(dir, string(kind)+".txt")
	if err := atomicWrite(final, []byte(text)); err != nil {
		return err
	}
	if err := appendHistory(filepath.Join(dir, string(kind)+".history.txt"), text); err != nil {
		// History is best-effort; the canonical output already landed.
		s.logger.Warn("sink: history append failed", zap.Error(err))
	}

	s.logger.Debug("output written",
		zap.String("path", final),
		zap.Int("bytes", len(text)))
	return nil
}

// #endregion sink

// #region helpers

// atomicWrite writes via a temp file in the same directory and renames it
// into place so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("sink: temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sink: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sink: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sink: rename to %s: %w", path, err)
	}
	return nil
}

func appendHistory(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "--- %s ---\n%s\n\n", time.Now().UTC().Format(time.RFC3339), text)
	return err
}

// slug lowercases a subject and replaces filesystem-hostile runes.
func slug(subject string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(subject)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// #endregion helpers
