package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

var (
	cellColumns  = []string{"cell", "barcode", "cell_id", "barcodes", "obs_names", ""}
	groupColumns = []string{"condition", "group", "diagnosis", "label"}
)

// ReadMetadataFile reads cell group assignments from a CSV or TSV file.
func ReadMetadataFile(path string) (map[string]expression.Group, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return ReadMetadata(rc, path, delimiter(path))
}

// ReadMetadata reads a header row followed by one row per cell. The cell id
// column is named cell or barcode (or left unnamed as the first column); the
// group column is named condition or group. name is used in error messages.
func ReadMetadata(r io.Reader, name string, comma rune) (map[string]expression.Group, error) {
	cr := newCSVReader(r, comma)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseErrorAt("metadata", name, 1, "missing header row")
	}
	if err != nil {
		return nil, errors.WrapParse("metadata", name, err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = stripBOM(header[0])
	}

	cellCol := findColumn(header, cellColumns)
	groupCol := findColumn(header, groupColumns)
	if cellCol < 0 || groupCol < 0 {
		return nil, errors.NewParseErrorAt("metadata", name, 1,
			fmt.Sprintf("header must name a cell column and a condition column, got %v", header))
	}

	groups := make(map[string]expression.Group)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.WrapParse("metadata", name, err)
		}
		if len(record) <= cellCol || len(record) <= groupCol {
			return nil, errors.NewParseErrorAt("metadata", name, line, "row has too few columns")
		}

		id := strings.TrimSpace(record[cellCol])
		if id == "" {
			return nil, errors.NewParseErrorAt("metadata", name, line, "empty cell id")
		}
		group, err := expression.ParseGroup(record[groupCol])
		if err != nil {
			return nil, errors.NewParseErrorAt("metadata", name, line,
				fmt.Sprintf("unknown condition %q", record[groupCol]))
		}
		if prev, ok := groups[id]; ok && prev != group {
			return nil, errors.NewParseErrorAt("metadata", name, line,
				fmt.Sprintf("cell %s assigned to both %s and %s", id, prev, group))
		}
		groups[id] = group
	}

	if len(groups) == 0 {
		return nil, errors.NewParseErrorAt("metadata", name, line, "no cells listed")
	}
	return groups, nil
}

// findColumn returns the index of the first header matching one of names, in
// priority order. An empty name matches an unnamed first column only.
func findColumn(header []string, names []string) int {
	for _, want := range names {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			if want == "" {
				if i == 0 && h == "" {
					return 0
				}
				continue
			}
			if h == want {
				return i
			}
		}
	}
	return -1
}
