package conf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tphakala/labelgrid/internal/errors"
)

// DatasetVersion selects the dataset variant.
type DatasetVersion string

const (
	VersionFull DatasetVersion = "full"
	VersionTiny DatasetVersion = "tiny"
)

// SupportedVersions lists the versions in display order.
var SupportedVersions = []DatasetVersion{VersionFull, VersionTiny}

// ParseDatasetVersion accepts "full" or "tiny" in any case.
func ParseDatasetVersion(s string) (DatasetVersion, error) {
	switch v := DatasetVersion(strings.ToLower(strings.TrimSpace(s))); v {
	case VersionFull, VersionTiny:
		return v, nil
	}
	return "", errors.UnsupportedVersionError(s)
}

// String implements fmt.Stringer.
func (v DatasetVersion) String() string { return string(v) }

// Labelspace selects which labels a label table holds.
type Labelspace string

const (
	// LabelspaceObserved keeps only labels with at least one sampled item.
	LabelspaceObserved Labelspace = "observed"
	// LabelspaceDeclared keeps the label map as read.
	LabelspaceDeclared Labelspace = "declared"
)

// ParseLabelspace accepts "observed" or "declared" in any case.
func ParseLabelspace(s string) (Labelspace, error) {
	switch l := Labelspace(strings.ToLower(strings.TrimSpace(s))); l {
	case LabelspaceObserved, LabelspaceDeclared:
		return l, nil
	}
	return "", errors.ConfigError(fmt.Errorf("unknown labelspace %q, expected observed or declared", s)).
		Context("labelspace", s).
		Build()
}

// String implements fmt.Stringer.
func (l Labelspace) String() string { return string(l) }

// ParseShuffle parses a shuffle toggle. An empty string means false.
func ParseShuffle(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New(fmt.Errorf("invalid shuffle value %q", s)).
			Category(errors.CategoryValidation).
			Build()
	}
	return b, nil
}

// Clamp limits v to [Min, Max] and snaps it down to the nearest step above Min.
func (r RangeSettings) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	if r.Step > 0 {
		v = r.Min + (v-r.Min)/r.Step*r.Step
	}
	return v
}

// Contains reports whether v lies within [Min, Max].
func (r RangeSettings) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}
