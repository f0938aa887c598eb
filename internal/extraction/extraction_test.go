package extraction

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "photos.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractPhotos(t *testing.T) {
	t.Parallel()

	archive := writeTestZip(t, map[string]string{
		"trip/day1.jpg":      "jpeg-bytes",
		"trip/day2.PNG":      "png-bytes",
		"trip/notes.txt":     "not a photo",
		"trip/.DS_Store":     "junk",
		"trip/._day1.jpg":    "resource fork",
		"trip/nested/b.jpeg": "more jpeg",
	})

	files, destDir, err := ExtractPhotos(archive)
	require.NoError(t, err)
	defer os.RemoveAll(destDir)

	require.Len(t, files, 3)
	// Lexical order keeps upload indices stable across identical archives.
	assert.Equal(t, "day1.jpg", filepath.Base(files[0]))
	assert.Equal(t, "day2.PNG", filepath.Base(files[1]))
	assert.Equal(t, "b.jpeg", filepath.Base(files[2]))

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))
}

func TestExtractPhotosInvalidArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))

	_, _, err := ExtractPhotos(path)
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	t.Parallel()

	assert.True(t, IsImageFile("a.jpg"))
	assert.True(t, IsImageFile("a.JPEG"))
	assert.True(t, IsImageFile("a.heic"))
	assert.False(t, IsImageFile("a.zip"))
	assert.False(t, IsImageFile("a"))
}
