package dataset

import "github.com/tphakala/labelgrid/internal/errors"

// Page is one label's worth of items. Paths and Names are parallel.
type Page struct {
	Index     int      `json:"index"`
	LabelID   string   `json:"label_id"`
	LabelName string   `json:"label_name"`
	Paths     []string `json:"paths"`
	Names     []string `json:"names"`
}

// SelectPage returns the items of labels[pageIndex] in item table order.
func SelectPage(items ItemTable, labels LabelTable, pageIndex int) (Page, error) {
	if pageIndex < 0 || pageIndex >= len(labels) {
		return Page{}, errors.IndexError(pageIndex, len(labels))
	}

	label := labels[pageIndex]
	page := Page{
		Index:     pageIndex,
		LabelID:   label.LabelID,
		LabelName: label.LabelName,
		Paths:     []string{},
		Names:     []string{},
	}
	for _, it := range items {
		if it.LabelID != label.LabelID {
			continue
		}
		page.Paths = append(page.Paths, it.ItemPath)
		page.Names = append(page.Names, label.LabelName)
	}
	return page, nil
}

// PageCount returns the number of pages, one per label.
func PageCount(labels LabelTable) int {
	return len(labels)
}

// FindPage returns the page index of labelID.
func FindPage(labels LabelTable, labelID string) (int, bool) {
	for i, l := range labels {
		if l.LabelID == labelID {
			return i, true
		}
	}
	return 0, false
}
