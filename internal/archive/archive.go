// Package archive bundles rendered tracks into a zip and owns the output
// naming conventions.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Entry is one file in an archive.
type Entry struct {
	Name string
	Data []byte
}

// Write zips entries to w in order. Duplicate names get a " (n)" suffix.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	taken := make(map[string]bool, len(entries))
	modified := time.Now()

	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     uniqueName(e.Name, taken),
			Method:   zip.Deflate,
			Modified: modified,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("adding %s: %w", hdr.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("writing %s: %w", hdr.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing zip: %w", err)
	}
	return nil
}

// Bytes returns the zip of entries.
func Bytes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the zip to path via a temp file in the same directory,
// so a failed export never leaves a partial archive behind.
func WriteFile(path string, entries []Entry) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".beatboy-*.zip")
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, entries); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	return nil
}
