package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/i474232898/weather-flow/internal/export"
	"github.com/i474232898/weather-flow/internal/weather"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

type column struct {
	header string
	align  align
	cells  []string
	width  int
}

// headerPadding is the minimum room a column leaves around its header.
const headerPadding = 2

// RenderMarkdown renders ds as a pipe table: an unnamed index column, the
// date column and one right-aligned column per variable. Values are printed
// with six significant digits.
func RenderMarkdown(ds *weather.Dataset) string {
	if ds == nil {
		ds = &weather.Dataset{}
	}

	cols := make([]*column, 0, len(ds.Columns)+2)
	index := &column{align: alignRight}
	date := &column{header: "date", align: alignLeft}
	cols = append(cols, index, date)

	vars := make([]*column, len(ds.Columns))
	for j, name := range ds.Columns {
		vars[j] = &column{header: name, align: alignRight}
		cols = append(cols, vars[j])
	}

	for i, row := range ds.Rows {
		index.cells = append(index.cells, strconv.Itoa(i))
		date.cells = append(date.cells, export.FormatDate(row.Date))
		for j := range vars {
			cell := "nan"
			if j < len(row.Values) {
				cell = formatValue(row.Values[j])
			}
			vars[j].cells = append(vars[j].cells, cell)
		}
	}

	for _, c := range cols {
		c.width = runewidth.StringWidth(c.header) + headerPadding
		for _, cell := range c.cells {
			if w := runewidth.StringWidth(cell); w > c.width {
				c.width = w
			}
		}
	}

	var b strings.Builder
	writeLine(&b, cols, func(c *column) string { return c.pad(c.header) })
	writeLine(&b, cols, func(c *column) string { return c.rule() })
	for i := range ds.Rows {
		writeLine(&b, cols, func(c *column) string { return c.pad(c.cells[i]) })
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func writeLine(b *strings.Builder, cols []*column, cell func(*column) string) {
	b.WriteString("|")
	for _, c := range cols {
		b.WriteString(cell(c))
		b.WriteString("|")
	}
	b.WriteString("\n")
}

func (c *column) pad(s string) string {
	if c.align == alignRight {
		return " " + runewidth.FillLeft(s, c.width) + " "
	}
	return " " + runewidth.FillRight(s, c.width) + " "
}

func (c *column) rule() string {
	dashes := strings.Repeat("-", c.width+1)
	if c.align == alignRight {
		return dashes + ":"
	}
	return ":" + dashes
}
