package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// Index scans root for label directories of the given layout and returns up
// to samplePerLabel items per directory plus the label table for space.
//
// Items keep filesystem enumeration order within and across directories; use
// SortByPath when a stable order is needed. Index only reads from fs.
func Index(fs afero.Fs, root string, samplePerLabel int, layout Layout, space Labelspace) (ItemTable, LabelTable, error) {
	if samplePerLabel < 0 {
		return nil, nil, errors.ConfigError(fmt.Errorf("sample per label must not be negative, got %d", samplePerLabel)).
			Context("sample_per_label", samplePerLabel).
			Build()
	}
	space, err := conf.ParseLabelspace(string(space))
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()

	labelMap, err := ReadLabelMap(fs, filepath.Join(root, layout.LabelMapFile), layout.LabelMapFormat)
	if err != nil {
		return nil, nil, err
	}
	names := labelMap.byID()

	dirs, err := labelDirs(fs, root, layout)
	if err != nil {
		return nil, nil, err
	}

	items := make(ItemTable, 0, len(dirs)*samplePerLabel)
	for _, dir := range dirs {
		labelID := layout.LabelIDFromDir(dir)
		labelName, ok := names[labelID]
		if !ok {
			return nil, nil, errors.LookupError(labelID, dir)
		}

		paths, err := afero.Glob(fs, filepath.Join(dir, layout.ItemGlob))
		if err != nil {
			return nil, nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Context("dir", dir).
				Build()
		}
		if len(paths) > samplePerLabel {
			paths = paths[:samplePerLabel]
		}

		for _, p := range paths {
			items = append(items, ItemEntry{
				ItemID:    strings.TrimSuffix(filepath.Base(p), ItemExt),
				ItemPath:  p,
				LabelID:   labelID,
				LabelName: labelName,
			})
		}
	}

	labels := labelMap
	if space == Observed {
		labels = ObservedLabels(items)
	}

	GetLogger().Debug("indexed dataset",
		logger.String("layout", layout.Name),
		logger.String("root", root),
		logger.Int("label_dirs", len(dirs)),
		logger.Int("items", len(items)),
		logger.Int("labels", len(labels)),
		logger.Duration("elapsed", time.Since(start)))

	return items, labels, nil
}

// labelDirs returns the directories matching the layout's label glob.
func labelDirs(fs afero.Fs, root string, layout Layout) ([]string, error) {
	matches, err := afero.Glob(fs, filepath.Join(root, layout.LabelDirGlob))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("pattern", layout.LabelDirGlob).
			Build()
	}

	dirs := matches[:0]
	for _, m := range matches {
		info, err := fs.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, m)
	}
	return dirs, nil
}

// ObservedLabels returns the distinct labels of items in first-seen order.
func ObservedLabels(items ItemTable) LabelTable {
	seen := make(map[string]struct{})
	var labels LabelTable
	for _, it := range items {
		if _, ok := seen[it.LabelID]; ok {
			continue
		}
		seen[it.LabelID] = struct{}{}
		labels = append(labels, LabelEntry{LabelID: it.LabelID, LabelName: it.LabelName})
	}
	return labels
}

// IndexSettings resolves the configured version's root and layout and indexes it.
func IndexSettings(fs afero.Fs, settings *conf.DatasetSettings, roots conf.RootDirs) (ItemTable, LabelTable, error) {
	version, err := conf.ParseDatasetVersion(settings.Version)
	if err != nil {
		return nil, nil, err
	}
	space, err := conf.ParseLabelspace(settings.Labelspace)
	if err != nil {
		return nil, nil, err
	}
	return IndexVersion(fs, roots, version, settings.SamplePerLabel, space, settings.Shuffle)
}

// IndexVersion indexes the root configured for version. Shuffle is accepted
// but leaves the tables in scan order.
func IndexVersion(fs afero.Fs, roots conf.RootDirs, version conf.DatasetVersion, samplePerLabel int, space Labelspace, shuffle bool) (ItemTable, LabelTable, error) {
	layout, err := LayoutFor(version)
	if err != nil {
		return nil, nil, err
	}
	root, err := roots.Root(version)
	if err != nil {
		return nil, nil, err
	}
	if shuffle {
		GetLogger().Debug("shuffle requested, tables keep scan order",
			logger.String("version", version.String()))
	}
	return Index(fs, root, samplePerLabel, layout, space)
}
