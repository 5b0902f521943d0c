package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"copyloop/internal/content"

	"go.uber.org/zap"
)

func testSink(t *testing.T) (*FileSink, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewFileSink(root, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	return s, root
}

func TestWriteAndReadBack(t *testing.T) {
	s, root := testSink(t)

	if err := s.Write("Corner Bakery", content.KindBlurb, "fresh bread daily"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "corner-bakery", "blurb.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "fresh bread daily" {
		t.Fatalf("bad content: %q", data)
	}
}

func TestWriteOverwritesButKeepsHistory(t *testing.T) {
	s, root := testSink(t)

	if err := s.Write("corner bakery", content.KindBlurb, "version one"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("corner bakery", content.KindBlurb, "version two"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "corner-bakery", "blurb.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "version two" {
		t.Fatalf("expected latest version, got %q", data)
	}

	hist, err := os.ReadFile(filepath.Join(root, "corner-bakery", "blurb.history.txt"))
	if err != nil {
		t.Fatalf("ReadFile history: %v", err)
	}
	if !strings.Contains(string(hist), "version one") || !strings.Contains(string(hist), "version two") {
		t.Fatalf("history missing a version: %q", hist)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s, root := testSink(t)

	if err := s.Write("shop", content.KindDescription, "text"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "shop"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestNewFileSinkRequiresRoot(t *testing.T) {
	if _, err := NewFileSink("", zap.NewNop()); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Corner Bakery":    "corner-bakery",
		"  café / bistro ": "caf---bistro",
		"a_b-c":            "a-b-c",
		"!!!":              "untitled",
		"":                 "untitled",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
