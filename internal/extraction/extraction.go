package extraction

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"
	"golang.org/x/net/context"
)

// imageExtensions lists the photo formats accepted from archives.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": true,
	".heif": true, ".webp": true, ".tiff": true, ".tif": true,
}

// IsImageFile reports whether the filename carries a supported photo extension.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// shouldIgnoreFile filters system files and macOS resource forks out of
// archive listings.
func shouldIgnoreFile(filename string) bool {
	if strings.HasPrefix(filename, "._") || strings.HasPrefix(filename, ".") {
		return true
	}
	if strings.EqualFold(filename, "thumbs.db") {
		return true
	}
	return filename == "" || strings.HasSuffix(filename, "/")
}

// ExtractPhotos extracts every supported image from a ZIP or RAR archive into
// a temporary directory and returns their paths in lexical order, so the
// caller's upload-index assignment is stable across identical archives. The
// caller owns destDir and must remove it.
func ExtractPhotos(archivePath string) ([]string, string, error) {
	destDir, err := os.MkdirTemp("", "photos-*")
	if err != nil {
		return nil, "", err
	}

	ctx := context.Background()
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	var files []string
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if shouldIgnoreFile(name) || !IsImageFile(name) {
			return nil
		}

		reader, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		destPath := filepath.Join(destDir, path)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer outFile.Close()

		if _, err := io.Copy(outFile, reader); err != nil {
			return err
		}

		files = append(files, destPath)
		return nil
	})
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	sort.Strings(files)
	return files, destDir, nil
}
