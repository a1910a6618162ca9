// Package export writes finished vertex streams to mesh files.
//
// PLY output never shares vertices: triangle i always refers to vertices
// 3i, 3i+1 and 3i+2, which mirrors the flat-shaded layout of the stream.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/isoview/pkg/stream"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

// plyProperties are the per-vertex properties, in file order.
var plyProperties = []string{"x", "y", "z", "nx", "ny", "nz"}

// WritePLY writes vertices as an ASCII PLY mesh. len(vertices) must be a
// multiple of 3.
func WritePLY(w io.Writer, vertices []stream.Vertex) error {
	if len(vertices)%3 != 0 {
		return errors.Errorf("export: %d vertices do not form whole triangles", len(vertices))
	}
	bw := bufio.NewWriter(w)

	bw.WriteString("ply\n")
	bw.WriteString("format ascii 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(vertices))
	for _, p := range plyProperties {
		fmt.Fprintf(bw, "property float %s\n", p)
	}
	fmt.Fprintf(bw, "element face %d\n", len(vertices)/3)
	bw.WriteString("property list uchar uint vertex_indices\n")
	bw.WriteString("end_header\n")

	buf := make([]byte, 0, 128)
	for _, v := range vertices {
		buf = buf[:0]
		for i, c := range [6]float64{v.Position.X, v.Position.Y, v.Position.Z, v.Normal.X, v.Normal.Y, v.Normal.Z} {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendFloat(buf, c, 'f', 6, 64)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	for i := 0; i < len(vertices); i += 3 {
		fmt.Fprintf(bw, "3 %d %d %d\n", i, i+1, i+2)
	}
	return errors.Wrap(bw.Flush(), "export: write ply")
}

// SavePLY writes vertices to a PLY file at path, replacing any existing file.
// Errors from the filesystem are wrapped and can be tested with errors.Is.
func SavePLY(path string, vertices []stream.Vertex) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "export: create %s", path)
	}
	if err := WritePLY(f, vertices); err != nil {
		f.Close()
		return errors.Wrapf(err, "export: %s", path)
	}
	return errors.Wrapf(f.Close(), "export: close %s", path)
}

// PLY is a mesh read back from a file written by WritePLY.
type PLY struct {
	Vertices []stream.Vertex
	Faces    [][3]int
}

// ReadPLY parses an ASCII PLY file with the layout WritePLY produces.
func ReadPLY(r io.Reader) (*PLY, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimSpace(sc.Text()), true
	}
	fail := func(format string, args ...any) error {
		return errors.Errorf("export: ply line %d: "+format, append([]any{line}, args...)...)
	}

	if s, ok := next(); !ok || s != "ply" {
		return nil, fail("missing ply magic")
	}
	if s, ok := next(); !ok || s != "format ascii 1.0" {
		return nil, fail("unsupported format %q", s)
	}

	nverts, nfaces := -1, -1
	props := 0
	for {
		s, ok := next()
		if !ok {
			return nil, fail("unexpected end of header")
		}
		if s == "end_header" {
			break
		}
		fields := strings.Fields(s)
		switch {
		case len(fields) == 0, fields[0] == "comment":
		case fields[0] == "element" && len(fields) == 3:
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fail("bad element count %q", fields[2])
			}
			switch fields[1] {
			case "vertex":
				nverts = n
			case "face":
				nfaces = n
			default:
				return nil, fail("unknown element %q", fields[1])
			}
		case fields[0] == "property" && nfaces < 0:
			if len(fields) != 3 || fields[1] != "float" || props >= len(plyProperties) || fields[2] != plyProperties[props] {
				return nil, fail("unexpected vertex property %q", s)
			}
			props++
		case fields[0] == "property":
			if s != "property list uchar uint vertex_indices" {
				return nil, fail("unexpected face property %q", s)
			}
		default:
			return nil, fail("unexpected header line %q", s)
		}
	}
	if nverts < 0 || nfaces < 0 {
		return nil, fail("header declares no vertex or face element")
	}
	if props != len(plyProperties) {
		return nil, fail("vertex element has %d properties, want %d", props, len(plyProperties))
	}

	out := &PLY{
		Vertices: make([]stream.Vertex, 0, nverts),
		Faces:    make([][3]int, 0, nfaces),
	}
	for i := 0; i < nverts; i++ {
		s, ok := next()
		if !ok {
			return nil, fail("expected %d vertices, got %d", nverts, i)
		}
		fields := strings.Fields(s)
		if len(fields) != len(plyProperties) {
			return nil, fail("vertex has %d fields", len(fields))
		}
		var c [6]float64
		for j, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fail("bad coordinate %q", f)
			}
			c[j] = x
		}
		out.Vertices = append(out.Vertices, stream.Vertex{
			Position: v3.Vec{X: c[0], Y: c[1], Z: c[2]},
			Normal:   v3.Vec{X: c[3], Y: c[4], Z: c[5]},
		})
	}
	for i := 0; i < nfaces; i++ {
		s, ok := next()
		if !ok {
			return nil, fail("expected %d faces, got %d", nfaces, i)
		}
		fields := strings.Fields(s)
		if len(fields) != 4 || fields[0] != "3" {
			return nil, fail("face is not a triangle: %q", s)
		}
		var face [3]int
		for j := range face {
			idx, err := strconv.Atoi(fields[j+1])
			if err != nil || idx < 0 || idx >= nverts {
				return nil, fail("bad vertex index %q", fields[j+1])
			}
			face[j] = idx
		}
		out.Faces = append(out.Faces, face)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "export: read ply")
	}
	return out, nil
}
