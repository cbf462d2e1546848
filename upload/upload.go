// Package upload stores form thumbnails on the local filesystem. It is the
// whole of the file-storage collaborator: everything else in the repository
// deals only in stored paths and public URLs.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const maxThumbnailSize = 5 << 20

var reUnsafe = regexp.MustCompile(`[^\w.\-]+`)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

var ErrUnsupportedType = errors.New("only PNG/JPEG/WEBP allowed")

// SaveThumbnail copies an uploaded image under dir/forms and returns its
// stored path. File names are sanitized and timestamp-prefixed to avoid
// collisions.
func SaveThumbnail(dir string, fh *multipart.FileHeader) (string, error) {
	if !allowedTypes[fh.Header.Get("Content-Type")] {
		return "", ErrUnsupportedType
	}
	if fh.Size > maxThumbnailSize {
		return "", errors.New("thumbnail exceeds 5MB")
	}

	target := filepath.Join(dir, "forms")
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", errors.Wrap(err, "upload.mkdir")
	}

	safe := reUnsafe.ReplaceAllString(filepath.Base(fh.Filename), "_")
	path := filepath.Join(target, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), safe))

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "upload.open")
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "upload.create")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "upload.copy")
	}
	return path, nil
}

// Remove deletes a stored thumbnail, ignoring files that are already gone.
func Remove(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}

// PublicURL maps a stored path to the URL it is served at, or "" when there
// is no thumbnail. Thumbnails are always exposed under /uploads/forms, no
// matter where the upload directory lives on disk.
func PublicURL(appURL, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(appURL, "/") + "/uploads/forms/" + filepath.Base(path)
}
