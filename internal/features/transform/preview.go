package transform

import (
	"fmt"
	"strings"

	common_models "go-viz/internal/common/models"
)

// Formatter renders values for the operations preview.
type Formatter interface {
	FormatValue(column common_models.Column, value any) string
	FormatTimeUnit(unit TimeUnit) string
	OperatorLabel(op FilterOperator) string
}

type PreviewSection struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Preview is a read model of a store. Empty sections are omitted.
type Preview struct {
	Sections []PreviewSection `json:"sections"`
}

func (p *Preview) Empty() bool {
	return len(p.Sections) == 0
}

func (p *Preview) String() string {
	var b strings.Builder
	for i, sec := range p.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sec.Title)
		b.WriteString("\n")
		for _, line := range sec.Lines {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Project renders s into a Preview. It never mutates s.
func Project(s *Store, catalog *common_models.Catalog, f Formatter) *Preview {
	if f == nil {
		f = plainFormatter{}
	}
	p := &Preview{Sections: []PreviewSection{}}
	add := func(title string, lines []string) {
		if len(lines) > 0 {
			p.Sections = append(p.Sections, PreviewSection{Title: title, Lines: lines})
		}
	}

	add("Filters", filterLines(s.Filters, f))
	add("Sort", sortLines(s.Sort, catalog))
	add("Aggregation", aggregationLines(s, catalog, f))
	add("Pivot", pivotLines(s, catalog, f))
	return p
}

func filterLines(filters []FilterSpec, f Formatter) []string {
	var lines []string
	for _, spec := range filters {
		col := common_models.Column{ID: spec.ColumnID, Name: spec.ColumnName, Type: spec.ColumnType}
		var parts []string
		for _, c := range spec.Conditions {
			part := f.OperatorLabel(c.Operator)
			switch {
			case c.Operator.Unary():
			case c.Operator == OperatorBetween:
				part += fmt.Sprintf(" %s and %s", f.FormatValue(col, c.Value), f.FormatValue(col, c.ValueEnd))
			default:
				part += " " + f.FormatValue(col, c.Value)
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			continue
		}
		lines = append(lines, spec.ColumnName+" "+strings.Join(parts, " and "))
	}
	return lines
}

func sortLines(levels []SortLevel, catalog *common_models.Catalog) []string {
	var lines []string
	for i, l := range levels {
		dir := "ascending"
		if l.Direction == SortDesc {
			dir = "descending"
		}
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, catalog.NameOf(l.ColumnID), dir))
	}
	return lines
}

func aggregationLines(s *Store, catalog *common_models.Catalog, f Formatter) []string {
	var lines []string
	if len(s.GroupBy) > 0 {
		names := make([]string, 0, len(s.GroupBy))
		for _, g := range s.GroupBy {
			names = append(names, withUnit(g.Name, g.TimeUnit, f))
		}
		lines = append(lines, "Group by: "+strings.Join(names, ", "))
	}
	for _, m := range s.Metrics {
		line := fmt.Sprintf("%s of %s", m.Type.Label(), catalog.NameOf(m.ColumnID))
		if m.Alias != "" {
			line += " as " + m.Alias
		}
		lines = append(lines, line)
	}
	return lines
}

func pivotLines(s *Store, catalog *common_models.Catalog, f Formatter) []string {
	var lines []string
	dims := func(label string, ds []PivotDimension) {
		if len(ds) == 0 {
			return
		}
		names := make([]string, 0, len(ds))
		for _, d := range ds {
			names = append(names, withUnit(d.Name, d.TimeUnit, f))
		}
		lines = append(lines, label+": "+strings.Join(names, ", "))
	}
	dims("Rows", s.PivotRows)
	dims("Columns", s.PivotColumns)
	if len(s.PivotValues) > 0 {
		names := make([]string, 0, len(s.PivotValues))
		for _, v := range s.PivotValues {
			name := v.Name
			if name == "" {
				name = catalog.NameOf(v.ColumnID)
			}
			names = append(names, ValueHeader(v.AggregationType, name))
		}
		lines = append(lines, "Values: "+strings.Join(names, ", "))
	}
	dims("Filters", s.PivotFilters)
	return lines
}

// ValueHeader is the derived column name of an aggregated value, e.g. "Sum of Sales".
func ValueHeader(op AggregationType, name string) string {
	return op.Label() + " of " + name
}

func withUnit(name string, unit TimeUnit, f Formatter) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, f.FormatTimeUnit(unit))
}

type plainFormatter struct{}

func (plainFormatter) FormatValue(_ common_models.Column, value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func (plainFormatter) FormatTimeUnit(unit TimeUnit) string {
	return "by " + string(unit)
}

func (plainFormatter) OperatorLabel(op FilterOperator) string {
	return op.Label()
}
