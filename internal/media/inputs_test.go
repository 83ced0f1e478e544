package media

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	beats := filepath.Join(dir, "beats")
	for _, name := range []string{"b.wav", "A.mp3", "c.FLAC", "notes.txt", "sub/deep.mp3"} {
		touch(t, filepath.Join(beats, name))
	}
	single := filepath.Join(dir, "single.ogg")
	touch(t, single)
	list := filepath.Join(dir, "set.m3u")
	if err := os.WriteFile(list, []byte("#EXTM3U\nsingle.ogg\nmissing.mp3\nhttps://example.com/x.mp3\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}

	got, err := ExpandInputs([]string{beats, single, list, "https://example.com/y.wav"})
	if err != nil {
		t.Fatalf("ExpandInputs() error = %v", err)
	}
	want := []string{
		filepath.Join(beats, "A.mp3"),
		filepath.Join(beats, "b.wav"),
		filepath.Join(beats, "c.FLAC"),
		single,
		single,
		"https://example.com/x.mp3",
		"https://example.com/y.wav",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandInputs() = %#v, want %#v", got, want)
	}
}

func TestExpandInputsErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ExpandInputs([]string{filepath.Join(dir, "missing.mp3")}); err == nil {
		t.Fatal("expected error for a missing input")
	}

	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes)
	if _, err := ExpandInputs([]string{notes}); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}

	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := ExpandInputs([]string{empty}); err == nil || !strings.Contains(err.Error(), "no playable audio") {
		t.Fatalf("expected no playable audio error, got %v", err)
	}
}
