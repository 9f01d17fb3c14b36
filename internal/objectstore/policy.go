package objectstore

import (
	"path"
	"strings"

	"github.com/computor-org/cpsto/internal/cerrors"
)

// MaxUploadSize is the default configured maximum object size CSG will
// accept (spec.md §4.2). Expressed in bytes; 100 MiB accommodates the
// media files (diagrams, datasets) educational content commonly ships.
const MaxUploadSize = 100 * 1024 * 1024

// allowedExtensions is the whitelist of file extensions CSG accepts for
// upload (spec.md §4.2: "documents, source files, archives, and media
// commonly used in educational content; executables are refused").
var allowedExtensions = map[string]bool{
	// documents
	".md": true, ".txt": true, ".pdf": true, ".rst": true, ".adoc": true,
	// source / config
	".py": true, ".go": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".js": true, ".ts": true, ".rs": true,
	".rb": true, ".sh": true, ".yaml": true, ".yml": true, ".json": true,
	".toml": true, ".sql": true, ".html": true, ".css": true, ".ipynb": true,
	".r": true, ".m": true, ".cs": true,
	// archives
	".zip": true, ".tar": true, ".gz": true, ".tgz": true,
	// media
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".mp4": true, ".csv": true,
}

const (
	errUploadTooLarge      = "upload exceeds maximum size of %d bytes"
	errExtensionNotAllowed = "extension %q is not in the upload whitelist"
	errPathTraversal       = "filename %q contains a path-traversal or non-portable sequence"
)

// ValidateUpload applies the CSG upload safety policy (spec.md §4.2) to
// a candidate filename and size, rejecting oversized uploads,
// disallowed extensions, and unsafe filenames before any bytes are
// written to the store.
func ValidateUpload(filename string, size int64, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	if size > maxSize {
		return cerrors.Newf(cerrors.KindValidation, errUploadTooLarge, maxSize)
	}
	if !isSafeFilename(filename) {
		return cerrors.Newf(cerrors.KindValidation, errPathTraversal, filename)
	}
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		return cerrors.Newf(cerrors.KindValidation, errExtensionNotAllowed, ext)
	}
	return nil
}

// isSafeFilename rejects path traversal sequences and characters that
// don't survive round-tripping through object-store keys and local
// filesystems portably.
func isSafeFilename(filename string) bool {
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") {
		return false
	}
	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "\\") {
		return false
	}
	for _, r := range filename {
		switch r {
		case '\x00':
			return false
		case '<', '>', ':', '"', '|', '?', '*':
			return false
		}
	}
	return true
}
