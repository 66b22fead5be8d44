package spv

// Unknown is the sentinel for "not determinable" fields across the
// reflection model (array lengths, offsets, struct indices, locations).
const Unknown = ^uint32(0)

// ScalarKind is the base numeric kind underlying vectors and matrices.
type ScalarKind uint8

const (
	ScalarFloat ScalarKind = iota
	ScalarDouble
	ScalarInt
	ScalarUInt
	ScalarBool
)

// TypeKind is the closed discriminant for Type (spec §9, "Type is a
// closed sum; avoid an inheritance hierarchy").
type TypeKind uint8

const (
	TypeKindScalar TypeKind = iota
	TypeKindVector
	TypeKindMatrix
	TypeKindImage
	TypeKindSubpassInput
	TypeKindStruct
)

// ImageClass distinguishes the three opaque-handle families a TypeKindImage
// Type can describe.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota // combined sampler (glsl `samplerND`)
	ImageClassShadow                    // depth-comparison sampler (`samplerNDShadow`)
	ImageClassStorage                   // storage image (`imageND`)
)

// Type is the closed reflection type taxonomy (spec §3 "Type"): scalars,
// vector widths 2/3/4, matrix shapes, every GLSL sampler/image
// dimensionality (including shadow/array/MS/rect/buffer/cube variants),
// subpass-input variants, and Struct.
type Type struct {
	Kind TypeKind

	// TypeKindScalar / TypeKindVector / TypeKindMatrix
	Scalar  ScalarKind
	VecSize uint8 // 2, 3, or 4 for TypeKindVector
	MatCols uint8 // TypeKindMatrix
	MatRows uint8

	// TypeKindImage / TypeKindSubpassInput
	ImageDim      Dim
	ImageClass    ImageClass
	ImageArrayed  bool
	ImageMS       bool

	// TypeKindStruct
	StructIndex uint32 // Unknown until resolved
}

// ArrayDim is one dimension of a (possibly multi-dimensional) array type.
type ArrayDim struct {
	Length uint32 // Unknown for OpTypeRuntimeArray
	Stride uint32 // Unknown when no ArrayStride decoration is present
}

// StructMember is one field of a reflected Struct (spec §3).
type StructMember struct {
	Name          string
	Offset        uint32 // Unknown if undetermined
	Size          uint32 // Unknown if undetermined (e.g. trailing runtime array)
	Type          Type
	StructIndex   uint32 // Unknown unless Type.Kind == TypeKindStruct
	ArrayElements []ArrayDim
	RowMajor      bool
}

// Struct is a reflected aggregate type (spec §3).
type Struct struct {
	Name    string
	Size    uint32 // Unknown if undetermined
	Members []StructMember
}

// UniformKind is the closed taxonomy of uniform roles (spec §3).
type UniformKind uint8

const (
	UniformPushConstant UniformKind = iota
	UniformBlock
	UniformBlockBuffer
	UniformImage
	UniformSampledImage
	UniformSubpassInput
)

// Uniform is a reflected uniform-interface entry (spec §3).
type Uniform struct {
	Name                 string
	Kind                 UniformKind
	Type                 Type
	StructIndex          uint32 // Unknown unless Type.Kind == TypeKindStruct
	ArrayElements        []ArrayDim
	DescriptorSet        uint32 // Unknown if absent
	Binding              uint32 // Unknown if absent
	InputAttachmentIndex uint32 // Unknown unless UniformSubpassInput
	SamplerIndex         uint32 // Unknown; reserved for combined-sampler pairing
}

// MemberLocation is one interface-block member's assigned slot.
type MemberLocation struct {
	Location  uint32 // Unknown if not yet assigned
	Component uint32
}

// InputOutput is a reflected stage input or output (spec §3).
type InputOutput struct {
	Name            string
	Type            Type
	StructIndex     uint32 // Unknown unless Type.Kind == TypeKindStruct
	ArrayElements   []uint32
	MemberLocations []MemberLocation // populated only when Type.Kind == TypeKindStruct
	Patch           bool
	AutoAssigned    bool
	Location        uint32 // Unknown if not yet assigned
	Component       uint32 // Unknown if not yet assigned
}
