// Package mctable holds the marching cubes configuration table: the mapping
// from an 8-bit cube corner classification to the triangles that approximate
// the isosurface inside that cube.
//
// The table is plain data injected into the extractor. Its indexing
// convention (which corner owns which bit, and where each template position
// sits in the unit cube) is a versioned contract; see Convention.
package mctable

import (
	"fmt"
	"sync"
)

// Convention is the version of the corner-to-bit and template layout the
// table rows are written against.
const Convention = 1

const (
	// Masks is the number of possible corner classifications.
	Masks = 256
	// RowLen is the fixed length of a table row.
	RowLen = 16
	// TemplateSize is the number of candidate vertex positions in a cube.
	TemplateSize = 12
	// Sentinel terminates a row early.
	Sentinel = -1
	// MaxTriangles is the most triangles a single cell can produce.
	MaxTriangles = RowLen / 3
)

// Corner bits. The bottom face lies at y, the top face at y+step; within a
// face the corners run back-left, back-right, top-right, top-left.
const (
	BotBackLeft  uint8 = 1 << iota // (0,0,0)
	BotBackRight                   // (1,0,0)
	BotTopRight                    // (1,0,1)
	BotTopLeft                     // (0,0,1)
	TopBackLeft                    // (0,1,0)
	TopBackRight                   // (1,1,0)
	TopTopRight                    // (1,1,1)
	TopTopLeft                     // (0,1,1)
)

// Corners gives the unit offset of the corner owning bit i.
var Corners = [8][3]float64{
	{0, 0, 0},
	{1, 0, 0},
	{1, 0, 1},
	{0, 0, 1},
	{0, 1, 0},
	{1, 1, 0},
	{1, 1, 1},
	{0, 1, 1},
}

// EdgeCorners lists the two corners each template position lies between.
var EdgeCorners = [TemplateSize][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DefaultTemplate places every candidate vertex at the midpoint of its edge.
var DefaultTemplate = [TemplateSize][3]float64{
	{0.5, 0, 0},
	{1, 0, 0.5},
	{0.5, 0, 1},
	{0, 0, 0.5},
	{0.5, 1, 0},
	{1, 1, 0.5},
	{0.5, 1, 1},
	{0, 1, 0.5},
	{0, 0.5, 0},
	{1, 0.5, 0},
	{1, 0.5, 1},
	{0, 0.5, 1},
}

// Row is one table entry: template indices taken three at a time, ended by
// Sentinel when fewer than five triangles apply.
type Row [RowLen]int8

// ConfigurationTableError reports a row that breaks the table contract.
type ConfigurationTableError struct {
	Mask     int
	Position int
	Reason   string
}

func (e *ConfigurationTableError) Error() string {
	return fmt.Sprintf("mctable: mask 0x%02x position %d: %s", e.Mask, e.Position, e.Reason)
}

// Table is a validated configuration table. It is immutable and safe for
// concurrent use.
type Table struct {
	rows      [Masks]Row
	template  [TemplateSize][3]float64
	triangles [Masks][][3]int8
}

// New validates rows and returns a table using the given template.
func New(rows [Masks]Row, template [TemplateSize][3]float64) (*Table, error) {
	if err := Validate(rows); err != nil {
		return nil, err
	}
	t := &Table{rows: rows, template: template}
	for mask, row := range rows {
		for i := 0; i+2 < RowLen && row[i] != Sentinel; i += 3 {
			t.triangles[mask] = append(t.triangles[mask], [3]int8{row[i], row[i+1], row[i+2]})
		}
	}
	return t, nil
}

// Validate checks every row: indices address the template, triangles are
// complete, the sentinel is reached at or before position 15 and nothing but
// sentinels follows it, and the all-outside and all-inside masks are empty.
func Validate(rows [Masks]Row) error {
	for mask, row := range rows {
		if err := validateRow(mask, row); err != nil {
			return err
		}
	}
	return nil
}

func validateRow(mask int, row Row) error {
	end := -1
	for i := 0; i < RowLen; i += 3 {
		if row[i] == Sentinel {
			end = i
			break
		}
		if i+2 >= RowLen {
			return &ConfigurationTableError{Mask: mask, Position: i, Reason: "row is not terminated"}
		}
		for j := i; j < i+3; j++ {
			if row[j] == Sentinel {
				return &ConfigurationTableError{Mask: mask, Position: j, Reason: "partial triangle"}
			}
			if row[j] < 0 || row[j] >= TemplateSize {
				return &ConfigurationTableError{
					Mask:     mask,
					Position: j,
					Reason:   fmt.Sprintf("template index %d out of range", row[j]),
				}
			}
		}
	}
	for i := end + 1; i < RowLen; i++ {
		if row[i] != Sentinel {
			return &ConfigurationTableError{Mask: mask, Position: i, Reason: "entry after sentinel"}
		}
	}
	if (mask == 0 || mask == Masks-1) && end != 0 {
		return &ConfigurationTableError{Mask: mask, Position: 0, Reason: "uniform cell must be empty"}
	}
	return nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := New(defaultRows, DefaultTemplate)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Row returns the raw row for mask.
func (t *Table) Row(mask uint8) Row {
	return t.rows[mask]
}

// Triangles returns the template index triples for mask. The result is
// shared and must not be modified.
func (t *Table) Triangles(mask uint8) [][3]int8 {
	return t.triangles[mask]
}

// Position returns the unit-cube position of a template index.
func (t *Table) Position(index int8) [3]float64 {
	return t.template[index]
}
