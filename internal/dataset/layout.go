package dataset

import (
	"path/filepath"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
)

// LabelMapFormat is the delimiter style of a label map file.
type LabelMapFormat int

const (
	// SpaceSeparated lines are "id word word ...".
	SpaceSeparated LabelMapFormat = iota
	// TabSeparated lines are "id<TAB>name".
	TabSeparated
)

// String implements fmt.Stringer.
func (f LabelMapFormat) String() string {
	if f == TabSeparated {
		return "tab"
	}
	return "space"
}

// Layout describes where one dataset variant keeps its label map and images.
// Globs are relative to the dataset root.
type Layout struct {
	Name           string
	LabelMapFile   string
	LabelDirGlob   string
	ItemGlob       string
	LabelMapFormat LabelMapFormat
	LabelIDFromDir func(dir string) string
}

// ItemExt is the extension of image files in both layouts.
const ItemExt = ".JPEG"

// FullLayout is ImageNet-1k: root/ILSVRC/Data/CLS-LOC/train/<id>/*.JPEG.
var FullLayout = Layout{
	Name:           string(conf.VersionFull),
	LabelMapFile:   "synset_words.txt",
	LabelDirGlob:   filepath.Join("ILSVRC", "Data", "CLS-LOC", "train", "n*"),
	ItemGlob:       "*" + ItemExt,
	LabelMapFormat: SpaceSeparated,
	LabelIDFromDir: filepath.Base,
}

// TinyLayout is Tiny ImageNet: root/train/<id>/images/*.JPEG.
var TinyLayout = Layout{
	Name:           string(conf.VersionTiny),
	LabelMapFile:   "words.txt",
	LabelDirGlob:   filepath.Join("train", "n*", "images"),
	ItemGlob:       "*" + ItemExt,
	LabelMapFormat: TabSeparated,
	LabelIDFromDir: func(dir string) string { return filepath.Base(filepath.Dir(dir)) },
}

// LayoutFor returns the layout of a dataset version.
func LayoutFor(version conf.DatasetVersion) (Layout, error) {
	switch version {
	case conf.VersionFull:
		return FullLayout, nil
	case conf.VersionTiny:
		return TinyLayout, nil
	}
	return Layout{}, errors.UnsupportedVersionError(string(version))
}
