package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// PrimitiveKind distinguishes between primitive shapes.
type PrimitiveKind int

const (
	PrimSphere   PrimitiveKind = iota // radius
	PrimBox                           // size, round
	PrimCylinder                      // height, radius, round
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimSphere:
		return "sphere"
	case PrimBox:
		return "box"
	case PrimCylinder:
		return "cylinder"
	default:
		return "unknown"
	}
}

// PrimitiveData describes a solid centered on the origin. Only the fields
// relevant to PrimKind are used.
type PrimitiveData struct {
	PrimKind PrimitiveKind `json:"prim_kind"`
	Radius   float64       `json:"radius,omitempty"`
	Height   float64       `json:"height,omitempty"`
	Size     Vec3          `json:"size,omitempty"`
	Round    float64       `json:"round,omitempty"` // edge rounding radius
}

func (PrimitiveData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BoolOp enumerates constructive solid geometry operations.
type BoolOp int

const (
	OpUnion        BoolOp = iota // all children
	OpDifference                 // first child minus the rest
	OpIntersection               // common volume of all children
)

func (op BoolOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines the node's children.
type BooleanData struct {
	Op BoolOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to a child node.
// Rotation is applied before translation.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData collects the solids a scene declares.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
