package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/labelgrid/internal/errors"
)

// ReadLabelMap reads a label map file in the given format. Blank lines are
// skipped; a line without an id or a name, or a repeated id, is an error.
func ReadLabelMap(fs afero.Fs, path string, format LabelMapFormat) (LabelTable, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Errorf("cannot read label map: %w", err)).
			Context("file", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	labels, err := parseLabelMap(f, path, format)
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func parseLabelMap(r io.Reader, path string, format LabelMapFormat) (LabelTable, error) {
	var labels LabelTable
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		id, name, ok := splitLabelLine(line, format)
		if !ok {
			return nil, labelMapLineError(path, lineNo, fmt.Sprintf("expected id and name separated by %s", format))
		}
		if first, dup := seen[id]; dup {
			return nil, labelMapLineError(path, lineNo, fmt.Sprintf("duplicate label id %q, first seen on line %d", id, first))
		}
		seen[id] = lineNo
		labels = append(labels, LabelEntry{LabelID: id, LabelName: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigError(fmt.Errorf("cannot read label map: %w", err)).
			Context("file", path).
			Build()
	}

	return labels, nil
}

// splitLabelLine splits a line into id and name. Space-separated names are
// every word after the id joined by single spaces.
func splitLabelLine(line string, format LabelMapFormat) (id, name string, ok bool) {
	switch format {
	case TabSeparated:
		id, name, ok = strings.Cut(line, "\t")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	default:
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return "", "", false
		}
		id, name, ok = fields[0], strings.Join(fields[1:], " "), true
	}
	return id, name, ok && id != "" && name != ""
}

func labelMapLineError(path string, lineNo int, reason string) error {
	return errors.ConfigError(fmt.Errorf("%s:%d: malformed label map line: %s", path, lineNo, reason)).
		Context("file", path).
		Context("line", lineNo).
		Build()
}

// byID indexes a label table for lookup.
func (t LabelTable) byID() map[string]string {
	m := make(map[string]string, len(t))
	for _, l := range t {
		m[l.LabelID] = l.LabelName
	}
	return m
}
