package conf

import (
	"bufio"
	"fmt"
	iofs "io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// RootDirs maps each dataset version to its root directory.
type RootDirs map[DatasetVersion]string

// Root returns the root directory configured for version.
func (r RootDirs) Root(version DatasetVersion) (string, error) {
	root, ok := r[version]
	if !ok || root == "" {
		return "", errors.ConfigError(fmt.Errorf("no root directory configured for dataset version %q", version)).
			Context("version", string(version)).
			Build()
	}
	return root, nil
}

// Versions returns the configured versions in SupportedVersions order.
func (r RootDirs) Versions() []DatasetVersion {
	var versions []DatasetVersion
	for _, v := range SupportedVersions {
		if _, ok := r[v]; ok {
			versions = append(versions, v)
		}
	}
	return versions
}

// LoadRootDirs reads a root-directory mapping file of "version,path" lines.
// Blank lines are skipped. Every other line needs exactly one comma and a
// non-empty version and path; a version may appear only once.
func LoadRootDirs(fs afero.Fs, path string) (RootDirs, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Errorf("cannot read root dirs file: %w", err)).
			Context("file", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	dirs := RootDirs{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Count(line, ",") != 1 {
			return nil, rootDirsLineError(path, lineNo, "expected exactly one comma")
		}
		rawVersion, root, _ := strings.Cut(line, ",")
		rawVersion, root = strings.TrimSpace(rawVersion), strings.TrimSpace(root)
		if rawVersion == "" || root == "" {
			return nil, rootDirsLineError(path, lineNo, "version and path must not be empty")
		}

		version := DatasetVersion(strings.ToLower(rawVersion))
		if _, dup := dirs[version]; dup {
			return nil, rootDirsLineError(path, lineNo, fmt.Sprintf("duplicate version %q", rawVersion))
		}
		dirs[version] = root
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigError(fmt.Errorf("cannot read root dirs file: %w", err)).
			Context("file", path).
			Build()
	}

	return dirs, nil
}

func rootDirsLineError(path string, lineNo int, reason string) error {
	return errors.ConfigError(fmt.Errorf("%s:%d: malformed root dirs line: %s", path, lineNo, reason)).
		Context("file", path).
		Context("line", lineNo).
		Build()
}

// ResolveRootDirs loads settings.RootDirsFile, when set, and merges the inline
// settings.Roots over it. Inline versions must be supported ones. A missing
// file is tolerated when inline roots exist; any other file error is fatal.
func ResolveRootDirs(fs afero.Fs, settings *DatasetSettings) (RootDirs, error) {
	dirs := RootDirs{}
	if settings.RootDirsFile != "" {
		loaded, err := LoadRootDirs(fs, settings.RootDirsFile)
		switch {
		case err == nil:
			dirs = loaded
		case len(settings.Roots) > 0 && errors.Is(err, iofs.ErrNotExist):
			GetLogger().Warn("root dirs file missing, using inline roots only",
				logger.String("file", settings.RootDirsFile), logger.Error(err))
		default:
			return nil, err
		}
	}

	for _, key := range slices.Sorted(maps.Keys(settings.Roots)) {
		version, err := ParseDatasetVersion(key)
		if err != nil {
			return nil, err
		}
		if root := strings.TrimSpace(settings.Roots[key]); root != "" {
			dirs[version] = root
		}
	}

	if len(dirs) == 0 {
		return nil, errors.ConfigError(fmt.Errorf("no dataset roots configured")).Build()
	}
	return dirs, nil
}
