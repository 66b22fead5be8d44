package spv

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/parse"
)

// TestReflectSimpleFragmentOutput is the minimal Reflect smoke test: one
// explicitly-located vec4 fragment output.
func TestReflectSimpleFragmentOutput(t *testing.T) {
	m := newModule()
	floatID := m.id()
	m.emit(OpTypeFloat, floatID, 32)
	vec4ID := m.id()
	m.emit(OpTypeVector, vec4ID, floatID, 4)
	ptrID := m.id()
	m.emit(OpTypePointer, ptrID, uint32(StorageClassOutput), vec4ID)
	varID := m.id()
	m.emit(OpVariable, ptrID, varID, uint32(StorageClassOutput))
	m.emit(OpName, append([]uint32{varID}, packString("outColor")...)...)
	m.emit(OpDecorate, varID, uint32(DecorationLocation), 0)
	m.emit(OpFunction, 0, 0, 0, 0)

	var bag diag.Bag
	proc, err := Reflect(parse.Fragment, "test.spv", m.finish(), &bag)
	if err != nil {
		t.Fatalf("Reflect error: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Messages())
	}
	if len(proc.Outputs) != 1 {
		t.Fatalf("len(Outputs) = %d, want 1", len(proc.Outputs))
	}
	out := proc.Outputs[0]
	if out.Name != "outColor" {
		t.Errorf("Name = %q, want outColor", out.Name)
	}
	if out.Location != 0 {
		t.Errorf("Location = %d, want 0", out.Location)
	}
	if out.Type.Kind != TypeKindVector || out.Type.VecSize != 4 {
		t.Errorf("Type = %+v, want a 4-component vector", out.Type)
	}
}

// testStructScenario builds the spec §8 scenario 5 module: a uniform block
// TestBlock{vec2Array2D, structMember TestStruct, structArray TestStruct[3],
// dvec3Var} where TestStruct{floatVar, vec3Array, mat4x3Var row-major}.
func testStructScenario(m *moduleBuilder) (blockStructID, testStructID uint32) {
	floatID := m.id()
	m.emit(OpTypeFloat, floatID, 32)
	doubleID := m.id()
	m.emit(OpTypeFloat, doubleID, 64)
	uintTypeID := m.id()
	m.emit(OpTypeInt, uintTypeID, 32, 0)

	vec2ID := m.id()
	m.emit(OpTypeVector, vec2ID, floatID, 2)
	vec3ID := m.id()
	m.emit(OpTypeVector, vec3ID, floatID, 3)
	dvec3ID := m.id()
	m.emit(OpTypeVector, dvec3ID, doubleID, 3)

	mat4x3ID := m.id()
	m.emit(OpTypeMatrix, mat4x3ID, vec3ID, 4)

	constVal := func(v uint32) uint32 {
		id := m.id()
		m.emit(OpConstant, uintTypeID, id, v)
		return id
	}
	len2 := constVal(2)
	len3 := constVal(3)

	vec3Array := m.id()
	m.emit(OpTypeArray, vec3Array, vec3ID, len2)
	m.emit(OpDecorate, vec3Array, uint32(DecorationArrayStride), 16)

	testStructID = m.id()
	m.emit(OpTypeStruct, testStructID, floatID, vec3Array, mat4x3ID)
	m.emit(OpMemberDecorate, testStructID, 0, uint32(DecorationOffset), 0)
	m.emit(OpMemberDecorate, testStructID, 1, uint32(DecorationOffset), 16)
	m.emit(OpMemberDecorate, testStructID, 2, uint32(DecorationOffset), 48)
	m.emit(OpMemberDecorate, testStructID, 2, uint32(DecorationRowMajor))
	m.emit(OpMemberDecorate, testStructID, 2, uint32(DecorationMatrixStride), 16)
	m.emit(OpName, append([]uint32{testStructID}, packString("TestStruct")...)...)
	m.emit(OpMemberName, append([]uint32{testStructID, 0}, packString("floatVar")...)...)
	m.emit(OpMemberName, append([]uint32{testStructID, 1}, packString("vec3Array")...)...)
	m.emit(OpMemberName, append([]uint32{testStructID, 2}, packString("mat4x3Var")...)...)

	vec2Inner := m.id()
	m.emit(OpTypeArray, vec2Inner, vec2ID, len2)
	vec2Outer := m.id()
	m.emit(OpTypeArray, vec2Outer, vec2Inner, len3)

	structArray := m.id()
	m.emit(OpTypeArray, structArray, testStructID, len3)
	m.emit(OpDecorate, structArray, uint32(DecorationArrayStride), 96)

	blockStructID = m.id()
	m.emit(OpTypeStruct, blockStructID, vec2Outer, testStructID, structArray, dvec3ID)
	m.emit(OpMemberDecorate, blockStructID, 0, uint32(DecorationOffset), 0)
	m.emit(OpMemberDecorate, blockStructID, 1, uint32(DecorationOffset), 96)
	m.emit(OpMemberDecorate, blockStructID, 2, uint32(DecorationOffset), 192)
	m.emit(OpMemberDecorate, blockStructID, 3, uint32(DecorationOffset), 480)
	m.emit(OpDecorate, blockStructID, uint32(DecorationBlock))
	m.emit(OpName, append([]uint32{blockStructID}, packString("TestBlock")...)...)
	m.emit(OpMemberName, append([]uint32{blockStructID, 0}, packString("vec2Array2D")...)...)
	m.emit(OpMemberName, append([]uint32{blockStructID, 1}, packString("structMember")...)...)
	m.emit(OpMemberName, append([]uint32{blockStructID, 2}, packString("structArray")...)...)
	m.emit(OpMemberName, append([]uint32{blockStructID, 3}, packString("dvec3Var")...)...)

	return blockStructID, testStructID
}

// TestReflectNestedStructOrdering is spec §8 scenario 5: a nested struct
// always precedes the struct that contains it in Structs, and size/stride
// footprints match the scenario's literal numbers. Regression test for the
// first-mention struct ordering fix in materializeStruct.
func TestReflectNestedStructOrdering(t *testing.T) {
	m := newModule()
	blockStructID, _ := testStructScenario(m)

	ptrID := m.id()
	m.emit(OpTypePointer, ptrID, uint32(StorageClassUniform), blockStructID)
	varID := m.id()
	m.emit(OpVariable, ptrID, varID, uint32(StorageClassUniform))
	m.emit(OpName, append([]uint32{varID}, packString("testBlock")...)...)
	m.emit(OpDecorate, varID, uint32(DecorationDescriptorSet), 0)
	m.emit(OpDecorate, varID, uint32(DecorationBinding), 0)
	m.emit(OpFunction, 0, 0, 0, 0)

	var bag diag.Bag
	proc, err := Reflect(parse.Fragment, "test.spv", m.finish(), &bag)
	if err != nil {
		t.Fatalf("Reflect error: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Messages())
	}
	if len(proc.Structs) != 2 {
		t.Fatalf("len(Structs) = %d, want 2: %+v", len(proc.Structs), proc.Structs)
	}

	testStruct, testBlock := proc.Structs[0], proc.Structs[1]
	if testStruct.Name != "TestStruct" {
		t.Errorf("Structs[0].Name = %q, want TestStruct (nested struct must precede its container)", testStruct.Name)
	}
	if testBlock.Name != "TestBlock" {
		t.Errorf("Structs[1].Name = %q, want TestBlock", testBlock.Name)
	}
	if testStruct.Size != 96 {
		t.Errorf("structs[0].Size = %d, want 96", testStruct.Size)
	}
	if testBlock.Size != 512 {
		t.Errorf("structs[1].Size = %d, want 512", testBlock.Size)
	}

	structArrayMember := testBlock.Members[2]
	if len(structArrayMember.ArrayElements) != 1 || structArrayMember.ArrayElements[0].Length != 3 || structArrayMember.ArrayElements[0].Stride != 96 {
		t.Errorf("structs[1].members[2].ArrayElements = %+v, want [{3 96}]", structArrayMember.ArrayElements)
	}

	mat4x3Member := testStruct.Members[2]
	if !mat4x3Member.RowMajor {
		t.Errorf("structs[0].members[2].RowMajor = false, want true")
	}

	wantMembers := []StructMember{
		{Name: "floatVar", Offset: 0, Size: 4, Type: Type{Kind: TypeKindScalar, Scalar: ScalarFloat}, StructIndex: Unknown},
		{
			Name: "vec3Array", Offset: 16, Size: 32,
			Type:          Type{Kind: TypeKindVector, Scalar: ScalarFloat, VecSize: 3},
			StructIndex:   Unknown,
			ArrayElements: []ArrayDim{{Length: 2, Stride: 16}},
		},
		{
			Name: "mat4x3Var", Offset: 48, Size: 48,
			Type:        Type{Kind: TypeKindMatrix, Scalar: ScalarFloat, MatCols: 4, MatRows: 3},
			StructIndex: Unknown,
			RowMajor:    true,
		},
	}
	if diff := cmp.Diff(wantMembers, testStruct.Members); diff != "" {
		t.Errorf("TestStruct.Members mismatch (-want +got):\n%s", diff)
	}
}

func TestReflectPushConstantAbsorption(t *testing.T) {
	m := newModule()
	floatID := m.id()
	m.emit(OpTypeFloat, floatID, 32)
	structID := m.id()
	m.emit(OpTypeStruct, structID, floatID)
	m.emit(OpMemberDecorate, structID, 0, uint32(DecorationOffset), 0)
	ptrID := m.id()
	m.emit(OpTypePointer, ptrID, uint32(StorageClassPushConstant), structID)
	varID := m.id()
	m.emit(OpVariable, ptrID, varID, uint32(StorageClassPushConstant))
	m.emit(OpFunction, 0, 0, 0, 0)

	var bag diag.Bag
	proc, err := Reflect(parse.Vertex, "test.spv", m.finish(), &bag)
	if err != nil {
		t.Fatalf("Reflect error: %v", err)
	}
	if proc.PushConstantStruct == Unknown {
		t.Fatalf("PushConstantStruct not resolved")
	}
	if proc.Structs[proc.PushConstantStruct].Size != 16 {
		t.Errorf("push constant struct size = %d, want 16", proc.Structs[proc.PushConstantStruct].Size)
	}
}
