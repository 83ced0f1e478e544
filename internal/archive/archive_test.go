package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "TAGGED_beat.mp3.wav", TaggedName("beat.mp3"))
	assert.Equal(t, "TAGGED_beat.mp3.wav", TaggedName("/music/in/beat.mp3"))
	assert.Equal(t, "BEATBOY_EXPORT_Dark Trap.wav.wav", ExportName("Dark Trap.wav"))
	assert.Equal(t, "THUMBNAIL_BEATBOY.png", ThumbnailName("BEATBOY"))
	assert.Equal(t, "THUMBNAIL_ACDC.png", ThumbnailName("AC/DC "))
	assert.Equal(t, "BEATBOY_BULK_EXPORT.zip", BulkArchiveName)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		`a:b*c?d"e<f>g|h`: "abcdefgh",
		"  spaced  ":      "spaced",
		`\/:*?"<>|`:       "untitled",
		"plain.wav":       "plain.wav",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{}
	assert.Equal(t, "a.wav", uniqueName("a.wav", taken))
	assert.Equal(t, "a (2).wav", uniqueName("a.wav", taken))
	assert.Equal(t, "a (3).wav", uniqueName("a.wav", taken))
	assert.Equal(t, "b", uniqueName("b", taken))
	assert.Equal(t, "b (2)", uniqueName("b", taken))
}

func readZip(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names = append(names, f.Name)
		files[f.Name] = b
	}
	return names, files
}

func TestBytesRoundTrip(t *testing.T) {
	entries := []Entry{
		{Name: TaggedName("one.mp3"), Data: []byte("RIFF-one")},
		{Name: TaggedName("two.wav"), Data: []byte("RIFF-two")},
		{Name: TaggedName("one.mp3"), Data: []byte("RIFF-dup")},
	}
	data, err := Bytes(entries)
	require.NoError(t, err)

	names, files := readZip(t, data)
	assert.Equal(t, []string{"TAGGED_one.mp3.wav", "TAGGED_two.wav.wav", "TAGGED_one.mp3 (2).wav"}, names)
	assert.Equal(t, []byte("RIFF-one"), files["TAGGED_one.mp3.wav"])
	assert.Equal(t, []byte("RIFF-two"), files["TAGGED_two.wav.wav"])
	assert.Equal(t, []byte("RIFF-dup"), files["TAGGED_one.mp3 (2).wav"])
}

func TestEmptyArchive(t *testing.T) {
	data, err := Bytes(nil)
	require.NoError(t, err)
	names, _ := readZip(t, data)
	assert.Empty(t, names)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BulkArchiveName)
	require.NoError(t, WriteFile(path, []Entry{{Name: "x.wav", Data: []byte("x")}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, files := readZip(t, data)
	assert.Equal(t, []byte("x"), files["x.wav"])

	left, err := filepath.Glob(filepath.Join(dir, ".beatboy-*"))
	require.NoError(t, err)
	assert.Empty(t, left, "temp file must be renamed away")
}

func TestWriteFileMissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.zip"), nil)
	assert.Error(t, err)
}
