package spv

import (
	"github.com/tidwall/btree"

	"github.com/gogpu/mslc/parse"
)

// SpirVProcessor owns the reflection graph derived from one compiled
// SPIR-V module for one stage (spec §3 "SpirVProcessor"). It borrows the
// source word array for the duration of later Rewrite calls.
type SpirVProcessor struct {
	Stage      parse.Stage
	Origin     string
	SourceWords []uint32 // borrowed; valid until the processor is discarded

	Structs   []Struct
	StructIDs []uint32 // parallel to Structs; StructIDs[i] is the type-id Structs[i] was built from

	Uniforms   []Uniform
	UniformIDs []uint32

	Inputs   []InputOutput
	InputIDs []uint32

	Outputs   []InputOutput
	OutputIDs []uint32

	PushConstantStruct uint32 // struct index, or Unknown
	ComputeLocalSize   [3]uint32

	ClipDistanceCount uint32
	CullDistanceCount uint32

	// uniformVars/inputVars/outputVars are keyed by SPIR-V id and kept in
	// a sorted btree so that reflection output is deterministic across
	// runs regardless of id-assignment order in the source module (spec
	// §9, "Order-sensitive structures ... iterated in key-sorted order").
	uniformVars *btree.Map[uint32, uint32] // id -> pointee type-id
	imageVars   *btree.Map[uint32, uint32] // id -> pointee type-id; unordered per spec §9, kept sorted here for simplicity
	inputVars   *btree.Map[uint32, uint32]
	outputVars  *btree.Map[uint32, uint32]
}

func newProcessor(stage parse.Stage, origin string, words []uint32) *SpirVProcessor {
	return &SpirVProcessor{
		Stage:              stage,
		Origin:             origin,
		SourceWords:        words,
		PushConstantStruct: Unknown,
		ComputeLocalSize:   [3]uint32{1, 1, 1},
		uniformVars:        btree.NewMap[uint32, uint32](32),
		imageVars:          btree.NewMap[uint32, uint32](32),
		inputVars:          btree.NewMap[uint32, uint32](32),
		outputVars:         btree.NewMap[uint32, uint32](32),
	}
}
