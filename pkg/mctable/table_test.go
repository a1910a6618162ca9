package mctable

import (
	"errors"
	"testing"
)

func TestDefaultTableValid(t *testing.T) {
	if err := Validate(defaultRows); err != nil {
		t.Fatalf("default rows invalid: %v", err)
	}
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestUniformMasksEmpty(t *testing.T) {
	tbl := Default()
	for _, mask := range []uint8{0x00, 0xFF} {
		if n := len(tbl.Triangles(mask)); n != 0 {
			t.Errorf("mask 0x%02x: expected 0 triangles, got %d", mask, n)
		}
	}
}

func TestEveryRowReachesSentinel(t *testing.T) {
	tbl := Default()
	for mask := 0; mask < Masks; mask++ {
		row := tbl.Row(uint8(mask))
		found := false
		for i := 0; i < RowLen; i += 3 {
			if row[i] == Sentinel {
				found = true
				break
			}
			if row[i+1] == Sentinel || row[i+2] == Sentinel {
				t.Fatalf("mask 0x%02x: partial triangle at %d", mask, i)
			}
		}
		if !found {
			t.Fatalf("mask 0x%02x: no sentinel at or before position 15", mask)
		}
	}
}

// Every template index a row uses must sit on an edge whose corners are
// classified differently, and every such edge must be used.
func TestRowsUseExactlyCrossingEdges(t *testing.T) {
	tbl := Default()
	for mask := 0; mask < Masks; mask++ {
		used := map[int8]bool{}
		for _, tri := range tbl.Triangles(uint8(mask)) {
			for _, idx := range tri {
				used[idx] = true
			}
		}
		for edge, c := range EdgeCorners {
			a := mask>>c[0]&1 == 1
			b := mask>>c[1]&1 == 1
			crossing := a != b
			if crossing != used[int8(edge)] {
				t.Errorf("mask 0x%02x edge %d: crossing=%v used=%v", mask, edge, crossing, used[int8(edge)])
			}
		}
	}
}

func TestTemplateIsEdgeMidpoints(t *testing.T) {
	for i, c := range EdgeCorners {
		a, b := Corners[c[0]], Corners[c[1]]
		for k := 0; k < 3; k++ {
			want := (a[k] + b[k]) / 2
			if DefaultTemplate[i][k] != want {
				t.Errorf("template %d axis %d: got %v, want %v", i, k, DefaultTemplate[i][k], want)
			}
		}
	}
}

func TestCornerBitsMatchCorners(t *testing.T) {
	bits := []uint8{BotBackLeft, BotBackRight, BotTopRight, BotTopLeft, TopBackLeft, TopBackRight, TopTopRight, TopTopLeft}
	for i, b := range bits {
		if b != 1<<i {
			t.Errorf("corner %d: bit 0x%02x, want 0x%02x", i, b, uint8(1)<<i)
		}
	}
	// Bottom face corners have y == 0, top face corners y == 1.
	for i, c := range Corners {
		wantY := 0.0
		if i >= 4 {
			wantY = 1
		}
		if c[1] != wantY {
			t.Errorf("corner %d: y = %v, want %v", i, c[1], wantY)
		}
	}
}

func emptyRows() [Masks]Row {
	var rows [Masks]Row
	for i := range rows {
		for j := range rows[i] {
			rows[i][j] = Sentinel
		}
	}
	return rows
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mask int
		row  Row
		pos  int
	}{
		{"partial triangle", 1, Row{0, 8, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 2},
		{"out of range", 1, Row{0, 8, 12, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 2},
		{"after sentinel", 1, Row{0, 8, 3, -1, 4, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 4},
		{"unterminated", 1, Row{0, 8, 3, 0, 8, 3, 0, 8, 3, 0, 8, 3, 0, 8, 3, 0}, 15},
		{"uniform not empty", 0, Row{0, 8, 3, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 0},
		{"full not empty", 255, Row{0, 8, 3, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := emptyRows()
			rows[tt.mask] = tt.row
			_, err := New(rows, DefaultTemplate)
			var cte *ConfigurationTableError
			if !errors.As(err, &cte) {
				t.Fatalf("expected ConfigurationTableError, got %v", err)
			}
			if cte.Mask != tt.mask || cte.Position != tt.pos {
				t.Errorf("got mask %d position %d, want mask %d position %d", cte.Mask, cte.Position, tt.mask, tt.pos)
			}
		})
	}
}

func TestNewAcceptsDegenerateTriangle(t *testing.T) {
	rows := emptyRows()
	rows[1] = Row{0, 0, 3, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
	tbl, err := New(rows, DefaultTemplate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := tbl.Triangles(1); len(got) != 1 || got[0] != [3]int8{0, 0, 3} {
		t.Errorf("unexpected triangles: %v", got)
	}
}
