package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PlaylistEntry is one playlist line: a local Path or a remote URL.
type PlaylistEntry struct {
	Path  string
	URL   string
	Title string
}

// Ref returns the path or URL the entry points at.
func (e PlaylistEntry) Ref() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Path
}

// ParseLocalPlaylist reads a .m3u/.m3u8/.pls file. Relative entries are
// resolved against the playlist's directory; http(s) entries stay URLs.
func ParseLocalPlaylist(path string) ([]PlaylistEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}

	body := strings.TrimPrefix(string(data), "\ufeff")
	scanner := bufio.NewScanner(strings.NewReader(body))
	baseDir := filepath.Dir(abs)
	if ext == ".pls" {
		return parsePLS(scanner, baseDir), nil
	}
	return parseM3U(scanner, baseDir), nil
}

// FilterPlayablePlaylistEntries keeps URLs and existing local files with
// a supported extension, titling local files by base name. It reports
// how many entries were dropped.
func FilterPlayablePlaylistEntries(entries []PlaylistEntry) ([]PlaylistEntry, int) {
	out := make([]PlaylistEntry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.URL != "" {
			if e.Title == "" {
				e.Title = e.URL
			}
			out = append(out, e)
			continue
		}
		info, err := os.Stat(e.Path)
		if err != nil || info.IsDir() || !IsSupportedExt(filepath.Ext(e.Path)) {
			skipped++
			continue
		}
		if e.Title == "" {
			base := filepath.Base(e.Path)
			e.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		out = append(out, e)
	}
	return out, skipped
}

func parseM3U(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	var entries []PlaylistEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if e, ok := playlistEntry(line, baseDir); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func parsePLS(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	var entries []PlaylistEntry
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || !isPLSFileKey(strings.TrimSpace(key)) {
			continue
		}
		if e, ok := playlistEntry(val, baseDir); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// isPLSFileKey matches File1, file2, ... case-insensitively.
func isPLSFileKey(key string) bool {
	if len(key) <= len("file") || !strings.EqualFold(key[:4], "file") {
		return false
	}
	for _, r := range key[4:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func playlistEntry(raw, baseDir string) (PlaylistEntry, bool) {
	v := strings.Trim(strings.TrimSpace(raw), `"'`)
	if v == "" {
		return PlaylistEntry{}, false
	}
	if isURL(v) {
		return PlaylistEntry{URL: v, Title: v}, true
	}
	p := filepath.Clean(v)
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return PlaylistEntry{Path: p}, true
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
