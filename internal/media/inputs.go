package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandInputs turns command-line arguments into the tracks to process.
// Files are taken as given, directories contribute their supported audio
// files (not recursively), playlists contribute their playable entries,
// and URLs pass through. Directory contents are sorted case-insensitively;
// argument and playlist order is kept.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if isURL(arg) {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		ext := filepath.Ext(arg)
		switch {
		case info.IsDir():
			files, err := listAudioFiles(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
		case IsPlaylistExt(ext):
			entries, err := ParseLocalPlaylist(arg)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", arg, err)
			}
			playable, _ := FilterPlayablePlaylistEntries(entries)
			for _, e := range playable {
				out = append(out, e.Ref())
			}
		case IsSupportedExt(ext):
			out = append(out, arg)
		default:
			return nil, fmt.Errorf("input %s: unsupported format %q (supported: %s)", arg, ext, SupportedExtsList())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no playable audio found in %s", strings.Join(args, ", "))
	}
	return out, nil
}

func listAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExt(filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(files, func(i, j int) bool {
		a, b := strings.ToLower(filepath.Base(files[i])), strings.ToLower(filepath.Base(files[j]))
		if a == b {
			return files[i] < files[j]
		}
		return a < b
	})
	return files, nil
}
