// Package dataset indexes ImageNet-style image folders into item and label
// tables and pages through them one label at a time.
package dataset

import "github.com/tphakala/labelgrid/internal/conf"

// LabelEntry is one label id and its human-readable name.
type LabelEntry struct {
	LabelID   string `json:"label_id"`
	LabelName string `json:"label_name"`
}

// ItemEntry is one sampled image.
type ItemEntry struct {
	ItemID    string `json:"item_id"`
	ItemPath  string `json:"item_path"`
	LabelID   string `json:"label_id"`
	LabelName string `json:"label_name"`
}

// ItemTable holds items in scan order.
type ItemTable []ItemEntry

// LabelTable holds labels with unique ids.
type LabelTable []LabelEntry

// Labelspace is re-exported so callers of Index need not import conf.
type Labelspace = conf.Labelspace

const (
	Observed = conf.LabelspaceObserved
	Declared = conf.LabelspaceDeclared
)
