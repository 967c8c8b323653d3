package report

import (
	"fmt"
	"strings"
)

// Table formats a two-column label/value listing with aligned columns.
type Table struct {
	rows []row
}

type row struct {
	label string
	value string
}

func NewTable() *Table { return &Table{} }

func (t *Table) AddRow(label string, value int64) {
	t.rows = append(t.rows, row{label: label, value: fmt.Sprintf("%d", value)})
}

func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}
	labelWidth := 0
	for _, r := range t.rows {
		if len(r.label) > labelWidth {
			labelWidth = len(r.label)
		}
	}
	var b strings.Builder
	for _, r := range t.rows {
		fmt.Fprintf(&b, "%-*s  %s\n", labelWidth, r.label, r.value)
	}
	return b.String()
}
