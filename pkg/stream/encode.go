package stream

import (
	"encoding/binary"
	"math"
)

// VertexSize is the encoded size of one vertex: six little-endian float32
// values, position then normal.
const VertexSize = 6 * 4

// Encode packs vertices into the byte layout render sinks upload.
func Encode(vs []Vertex) []byte {
	buf := make([]byte, len(vs)*VertexSize)
	off := 0
	for _, v := range vs {
		for _, f := range [6]float64{v.Position.X, v.Position.Y, v.Position.Z, v.Normal.X, v.Normal.Y, v.Normal.Z} {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(f)))
			off += 4
		}
	}
	return buf
}

// Decode is the inverse of Encode. Trailing bytes that do not form a whole
// vertex are ignored.
func Decode(buf []byte) []Vertex {
	vs := make([]Vertex, len(buf)/VertexSize)
	for i := range vs {
		var f [6]float64
		for j := range f {
			bits := binary.LittleEndian.Uint32(buf[i*VertexSize+j*4:])
			f[j] = float64(math.Float32frombits(bits))
		}
		vs[i].Position.X, vs[i].Position.Y, vs[i].Position.Z = f[0], f[1], f[2]
		vs[i].Normal.X, vs[i].Normal.Y, vs[i].Normal.Z = f[3], f[4], f[5]
	}
	return vs
}
