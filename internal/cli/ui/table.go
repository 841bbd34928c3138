// Package ui renders CLI output: aligned tables, key-value blocks and migration plans.
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Palette holds the colors output is written with. A disabled palette writes plain text.
type Palette struct {
	Header  *color.Color
	Key     *color.Color
	Muted   *color.Color
	Added   *color.Color
	Changed *color.Color
	Warning *color.Color
}

// NewPalette returns the default colors, or plain ones when noColor is set
func NewPalette(noColor bool) *Palette {
	p := &Palette{
		Header:  color.New(color.Bold, color.FgCyan),
		Key:     color.New(color.FgCyan),
		Muted:   color.New(color.FgHiBlack),
		Added:   color.New(color.FgGreen),
		Changed: color.New(color.FgYellow),
		Warning: color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.Header, p.Key, p.Muted, p.Added, p.Changed, p.Warning} {
			c.DisableColor()
		}
	}
	return p
}

// Table is a left-aligned table with a header row
type Table struct {
	writer  io.Writer
	palette *Palette
	headers []string
	rows    [][]string
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, palette *Palette, headers ...string) *Table {
	return &Table{writer: w, palette: palette, headers: headers}
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	last := len(widths) - 1
	for i, h := range t.headers {
		t.palette.Header.Fprint(t.writer, cell(h, widths[i], i == last))
	}
	fmt.Fprintln(t.writer)

	for i, w := range widths {
		sep := strings.Repeat("─", w)
		if i != last {
			sep += "  "
		}
		t.palette.Muted.Fprint(t.writer, sep)
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, c := range row {
			fmt.Fprint(t.writer, cell(c, widths[i], i == last))
		}
		fmt.Fprintln(t.writer)
	}
}

// cell pads s to width and adds the column gap; the last column is not padded
func cell(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s + "  "
}

// KeyValues renders aligned "key: value" lines
type KeyValues struct {
	writer  io.Writer
	palette *Palette
	keys    []string
	values  []string
}

// NewKeyValues creates an empty key-value block
func NewKeyValues(w io.Writer, palette *Palette) *KeyValues {
	return &KeyValues{writer: w, palette: palette}
}

// Add appends a pair; values are formatted with %v
func (kv *KeyValues) Add(key string, value interface{}) {
	kv.keys = append(kv.keys, key)
	kv.values = append(kv.values, fmt.Sprintf("%v", value))
}

// Render writes the block
func (kv *KeyValues) Render() {
	width := 0
	for _, k := range kv.keys {
		if n := utf8.RuneCountInString(k); n > width {
			width = n
		}
	}
	for i, k := range kv.keys {
		kv.palette.Key.Fprint(kv.writer, k+":"+strings.Repeat(" ", width-utf8.RuneCountInString(k)))
		fmt.Fprintf(kv.writer, " %s\n", kv.values[i])
	}
}

// Header writes a title underlined to its width
func Header(w io.Writer, palette *Palette, title string) {
	palette.Header.Fprintln(w, title)
	palette.Muted.Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
