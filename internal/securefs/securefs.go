package securefs

import (
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// GetLogger returns the securefs package logger scoped to the securefs module.
func GetLogger() logger.Logger {
	return logger.Global().Module("securefs")
}

// SecureFS gives read-only access to one directory tree through os.Root.
// Paths are relative to the base directory; traversal with "..", absolute
// paths and symlinks leading outside the base are rejected by the OS.
type SecureFS struct {
	baseDir string   // The base directory that all operations are restricted to
	root    *os.Root // The sandboxed filesystem root
}

// New opens baseDir as a sandbox. The directory must already exist.
func New(baseDir string) (*SecureFS, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create filesystem sandbox: %w", err)).
			Category(errors.CategoryFileIO).
			Context("base_dir", absPath).
			Build()
	}

	return &SecureFS{
		baseDir: absPath,
		root:    root,
	}, nil
}

// ValidateRelativePath validates a path assumed to be relative to the base directory.
// It returns a cleaned, validated path or an error if the path is not valid.
func (sfs *SecureFS) ValidateRelativePath(relPath string) (string, error) {
	if strings.ContainsRune(relPath, 0) {
		return "", fmt.Errorf("%w: path contains NUL byte", ErrInvalidPath)
	}

	cleanedPath := filepath.Clean(filepath.FromSlash(relPath))

	if filepath.IsAbs(cleanedPath) {
		return "", fmt.Errorf("%w: path must be relative, but got '%s' after cleaning '%s'",
			ErrInvalidPath, cleanedPath, relPath)
	}

	// After cleaning, paths starting with ".." indicate an attempt to go above the root.
	if strings.HasPrefix(cleanedPath, ".."+string(filepath.Separator)) || cleanedPath == ".." {
		return "", fmt.Errorf("%w: '%s' (cleaned from '%s')",
			ErrPathTraversal, cleanedPath, relPath)
	}

	return strings.TrimPrefix(cleanedPath, string(filepath.Separator)), nil
}

// RelativePath converts a path under the base directory to a relative one.
func (sfs *SecureFS) RelativePath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	relPath, err := filepath.Rel(sfs.baseDir, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not under %s", ErrInvalidPath, path, sfs.baseDir)
	}
	return sfs.ValidateRelativePath(relPath)
}

// Open opens a file relative to the base directory for reading.
func (sfs *SecureFS) Open(relPath string) (*os.File, error) {
	validated, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return nil, err
	}
	return sfs.root.Open(validated)
}

// Stat returns file info for a path relative to the base directory.
func (sfs *SecureFS) Stat(relPath string) (fs.FileInfo, error) {
	validated, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return nil, err
	}
	return sfs.root.Stat(validated)
}

// Fs returns a read-only afero view of the sandbox. Its paths are
// slash-separated and relative to the base directory.
func (sfs *SecureFS) Fs() afero.Fs {
	return afero.FromIOFS{FS: sfs.root.FS()}
}

// mapOpenErrorToHTTP converts file open errors to appropriate HTTP errors
func mapOpenErrorToHTTP(err error, effectivePath string) *echo.HTTPError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("File not found: %s", effectivePath))
	case errors.Is(err, fs.ErrPermission):
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	case errors.Is(err, ErrPathTraversal) || errors.Is(err, ErrInvalidPath):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
	case errors.Is(err, ErrNotRegularFile):
		return echo.NewHTTPError(http.StatusForbidden, "Not a regular file")
	case strings.Contains(err.Error(), "path escapes from parent"):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
	default:
		GetLogger().Error("Unhandled error serving file",
			logger.String("path", effectivePath),
			logger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Error serving file").SetInternal(err)
	}
}

// getContentType determines the content type for a file, using extension-based detection
func getContentType(path string) string {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

// ServeRelativeFile serves a file relative to the base directory. Range and
// conditional requests are handled by http.ServeContent.
func (sfs *SecureFS) ServeRelativeFile(c echo.Context, relPath string) error {
	validated, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return mapOpenErrorToHTTP(err, relPath)
	}

	f, err := sfs.root.Open(validated)
	if err != nil {
		GetLogger().Debug("Error opening file",
			logger.String("path", validated),
			logger.Error(err))
		return mapOpenErrorToHTTP(err, validated)
	}
	defer func() {
		if err := f.Close(); err != nil {
			GetLogger().Warn("Failed to close file", logger.Error(err))
		}
	}()

	stat, err := f.Stat()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get file info").SetInternal(err)
	}
	if !stat.Mode().IsRegular() {
		return mapOpenErrorToHTTP(ErrNotRegularFile, validated)
	}

	// Only set content type if not already set by the caller
	if c.Response().Header().Get(echo.HeaderContentType) == "" {
		c.Response().Header().Set(echo.HeaderContentType, getContentType(validated))
	}

	http.ServeContent(c.Response(), c.Request(), filepath.Base(validated), stat.ModTime(), f)
	return nil
}

// BaseDir returns the absolute base directory.
func (sfs *SecureFS) BaseDir() string {
	return sfs.baseDir
}

// Close closes the underlying Root
func (sfs *SecureFS) Close() error {
	if sfs.root != nil {
		return sfs.root.Close()
	}
	return nil
}
