package dataset

import (
	"slices"
	"strings"
)

// LabelCount is the number of sampled items of one label.
type LabelCount struct {
	LabelID   string `json:"label_id"`
	LabelName string `json:"label_name"`
	Count     int    `json:"count"`
}

// LabelCounts counts items per label in first-seen order.
func LabelCounts(items ItemTable) []LabelCount {
	index := make(map[string]int)
	var counts []LabelCount
	for _, it := range items {
		i, ok := index[it.LabelID]
		if !ok {
			i = len(counts)
			index[it.LabelID] = i
			counts = append(counts, LabelCount{LabelID: it.LabelID, LabelName: it.LabelName})
		}
		counts[i].Count++
	}
	return counts
}

// CountsForLabels returns one count per entry of labels, zero for labels
// without items.
func CountsForLabels(items ItemTable, labels LabelTable) []LabelCount {
	byID := make(map[string]int, len(labels))
	for _, c := range LabelCounts(items) {
		byID[c.LabelID] = c.Count
	}
	counts := make([]LabelCount, len(labels))
	for i, l := range labels {
		counts[i] = LabelCount{LabelID: l.LabelID, LabelName: l.LabelName, Count: byID[l.LabelID]}
	}
	return counts
}

// SortByPath returns a copy of items sorted by ItemPath.
func SortByPath(items ItemTable) ItemTable {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b ItemEntry) int {
		return strings.Compare(a.ItemPath, b.ItemPath)
	})
	return sorted
}

// Head returns at most n items.
func (t ItemTable) Head(n int) ItemTable {
	if n < 0 || n >= len(t) {
		return t
	}
	return t[:n]
}
