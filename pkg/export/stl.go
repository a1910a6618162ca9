package export

import (
	"github.com/chazu/isoview/pkg/stream"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"github.com/pkg/errors"
)

// Triangles groups a vertex stream into sdfx triangles. Normals are dropped;
// STL recomputes them from winding.
func Triangles(vertices []stream.Vertex) ([]*sdf.Triangle3, error) {
	if len(vertices)%3 != 0 {
		return nil, errors.Errorf("export: %d vertices do not form whole triangles", len(vertices))
	}
	tris := make([]*sdf.Triangle3, 0, len(vertices)/3)
	for i := 0; i < len(vertices); i += 3 {
		tris = append(tris, &sdf.Triangle3{
			vertices[i].Position,
			vertices[i+1].Position,
			vertices[i+2].Position,
		})
	}
	return tris, nil
}

// SaveSTL writes vertices to a binary STL file at path.
func SaveSTL(path string, vertices []stream.Vertex) error {
	tris, err := Triangles(vertices)
	if err != nil {
		return err
	}
	return errors.Wrapf(render.SaveSTL(path, tris), "export: save %s", path)
}
