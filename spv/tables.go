// Package spv decodes a compiled SPIR-V module for one shader stage into a
// reflection graph (structs, uniforms, inputs/outputs, push constants,
// compute local size), links interfaces across stages, and re-emits an
// annotated SPIR-V stream.
//
// The opcode/decoration/builtin tables below are the reflection-relevant
// subset of naga's disassembler tables.
package spv

// Magic is the SPIR-V magic number at word 0 of a module.
const Magic = 0x07230203

// Op is a SPIR-V opcode.
type Op uint16

const (
	OpSource           Op = 3
	OpSourceExtension  Op = 4
	OpName             Op = 5
	OpMemberName       Op = 6
	OpString           Op = 7
	OpSourceContinued  Op = 2
	OpLine             Op = 8
	OpExecutionMode    Op = 16
	OpTypeVoid         Op = 19
	OpTypeBool         Op = 20
	OpTypeInt          Op = 21
	OpTypeFloat        Op = 22
	OpTypeVector       Op = 23
	OpTypeMatrix       Op = 24
	OpTypeImage        Op = 25
	OpTypeSampler      Op = 26
	OpTypeSampledImage Op = 27
	OpTypeArray        Op = 28
	OpTypeRuntimeArray Op = 29
	OpTypeStruct       Op = 30
	OpTypePointer      Op = 32
	OpConstant         Op = 43
	OpFunction         Op = 54
	OpVariable         Op = 59
	OpDecorate         Op = 71
	OpMemberDecorate   Op = 72
)

// Decoration is a SPIR-V decoration kind.
type Decoration uint32

const (
	DecorationBlock                 Decoration = 2
	DecorationBufferBlock           Decoration = 3
	DecorationRowMajor              Decoration = 4
	DecorationColMajor              Decoration = 5
	DecorationArrayStride           Decoration = 6
	DecorationMatrixStride          Decoration = 7
	DecorationBuiltIn               Decoration = 11
	DecorationPatch                 Decoration = 15
	DecorationLocation              Decoration = 30
	DecorationComponent             Decoration = 31
	DecorationBinding               Decoration = 33
	DecorationDescriptorSet         Decoration = 34
	DecorationOffset                Decoration = 35
	DecorationInputAttachmentIndex  Decoration = 43
)

// BuiltIn is a SPIR-V BuiltIn decoration value.
type BuiltIn uint32

const (
	BuiltInPosition     BuiltIn = 0
	BuiltInClipDistance BuiltIn = 3
	BuiltInCullDistance BuiltIn = 4
)

// StorageClass is a SPIR-V storage class.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassImage           StorageClass = 11
	StorageClassPushConstant    StorageClass = 9
)

// ExecutionMode is a SPIR-V execution mode.
type ExecutionMode uint32

const ExecutionModeLocalSize ExecutionMode = 17

// Dim is a SPIR-V image dimensionality.
type Dim uint32

const (
	Dim1D         Dim = 0
	Dim2D         Dim = 1
	Dim3D         Dim = 2
	DimCube       Dim = 3
	DimRect       Dim = 4
	DimBuffer     Dim = 5
	DimSubpassData Dim = 6
)
