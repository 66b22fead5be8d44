package spv

import (
	"sort"

	"github.com/tidwall/btree"

	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/parse"
	"github.com/gogpu/mslc/token"
)

// MaxVersion is the highest SPIR-V version word this reflector accepts.
// 1.5 (0x00010500) covers every target the adapters in this module emit.
const MaxVersion = 0x00010500

type pointerType struct {
	storageClass StorageClass
	pointee      uint32
}

type variableDecl struct {
	id           uint32
	pointerType  uint32
	storageClass StorageClass
}

// rawType is an undecoded OpType* instruction, kept around until
// resolveType needs it; result id is always words[0] for every opcode the
// reflector honors.
type rawType struct {
	op    Op
	words []uint32
}

type reflector struct {
	proc *SpirVProcessor
	bag  *diag.Bag
	org  token.Origin

	names             map[uint32]string
	memberNames       map[uint32]map[uint32]string
	decorations       map[uint32]map[Decoration][]uint32
	memberDecorations map[uint32]map[uint32]map[Decoration][]uint32
	rawTypes          map[uint32]rawType
	constants         map[uint32]uint32
	pointers          map[uint32]pointerType
	structIndex       map[uint32]uint32
	blocks            map[uint32]bool
	bufferBlocks      map[uint32]bool
}

// Reflect decodes words (a compiled SPIR-V module for stage) into a
// SpirVProcessor, per spec §4.3. Malformed input (bad header, truncated
// stream) is a fatal error returned directly; a type id with no OpType*
// definition is not reported and resolves to the zero Type. Interface-invariant violations are recoverable and appended to bag, with
// the offending interface dropped from reflection.
func Reflect(stage parse.Stage, origin string, words []uint32, bag *diag.Bag) (*SpirVProcessor, error) {
	rd, _, err := NewReader(words, MaxVersion)
	if err != nil {
		return nil, err
	}

	proc := newProcessor(stage, origin, words)
	r := &reflector{
		proc:              proc,
		bag:               bag,
		org:               token.Origin{FileName: origin},
		names:             map[uint32]string{},
		memberNames:       map[uint32]map[uint32]string{},
		decorations:       map[uint32]map[Decoration][]uint32{},
		memberDecorations: map[uint32]map[uint32]map[Decoration][]uint32{},
		rawTypes:          map[uint32]rawType{},
		constants:         map[uint32]uint32{},
		pointers:          map[uint32]pointerType{},
		structIndex:       map[uint32]uint32{},
		blocks:            map[uint32]bool{},
		bufferBlocks:      map[uint32]bool{},
	}

	var variables []variableDecl

	for {
		inst, ok, err := rd.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := r.ingest(inst, &variables); err != nil {
			return nil, err
		}
	}

	for _, v := range variables {
		r.classifyVariable(v)
	}

	r.buildUniforms()
	r.buildInputsOutputs()

	return proc, nil
}

func (r *reflector) ingest(inst Instruction, variables *[]variableDecl) error {
	w := inst.Words
	switch inst.Op {
	case OpName:
		if len(w) < 2 {
			return nil
		}
		s, _ := readString(w[1:])
		r.names[w[0]] = s

	case OpMemberName:
		if len(w) < 3 {
			return nil
		}
		s, _ := readString(w[2:])
		if r.memberNames[w[0]] == nil {
			r.memberNames[w[0]] = map[uint32]string{}
		}
		r.memberNames[w[0]][w[1]] = s

	case OpDecorate:
		if len(w) < 2 {
			return nil
		}
		id, dec := w[0], Decoration(w[1])
		if r.decorations[id] == nil {
			r.decorations[id] = map[Decoration][]uint32{}
		}
		r.decorations[id][dec] = w[2:]
		switch dec {
		case DecorationBlock:
			r.blocks[id] = true
		case DecorationBufferBlock:
			r.bufferBlocks[id] = true
		}

	case OpMemberDecorate:
		if len(w) < 3 {
			return nil
		}
		id, member, dec := w[0], w[1], Decoration(w[2])
		if r.memberDecorations[id] == nil {
			r.memberDecorations[id] = map[uint32]map[Decoration][]uint32{}
		}
		if r.memberDecorations[id][member] == nil {
			r.memberDecorations[id][member] = map[Decoration][]uint32{}
		}
		r.memberDecorations[id][member][dec] = w[3:]

	case OpConstant:
		if len(w) < 3 {
			return nil
		}
		r.constants[w[1]] = w[2]

	case OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix,
		OpTypeArray, OpTypeRuntimeArray, OpTypeStruct, OpTypeImage, OpTypeSampledImage:
		if len(w) < 1 {
			return nil
		}
		r.rawTypes[w[0]] = rawType{op: inst.Op, words: w}

	case OpTypePointer:
		if len(w) < 3 {
			return nil
		}
		r.pointers[w[0]] = pointerType{storageClass: StorageClass(w[1]), pointee: w[2]}

	case OpVariable:
		if len(w) < 3 {
			return nil
		}
		*variables = append(*variables, variableDecl{id: w[1], pointerType: w[0], storageClass: StorageClass(w[2])})

	case OpExecutionMode:
		if len(w) >= 5 && ExecutionMode(w[1]) == ExecutionModeLocalSize {
			r.proc.ComputeLocalSize = [3]uint32{w[2], w[3], w[4]}
		}
	}
	return nil
}

func (r *reflector) classifyVariable(v variableDecl) {
	ptr, ok := r.pointers[v.pointerType]
	if !ok {
		return
	}
	switch ptr.storageClass {
	case StorageClassUniform:
		r.proc.uniformVars.Set(v.id, ptr.pointee)
	case StorageClassUniformConstant, StorageClassImage:
		r.proc.imageVars.Set(v.id, ptr.pointee)
	case StorageClassInput:
		r.proc.inputVars.Set(v.id, ptr.pointee)
	case StorageClassOutput:
		r.proc.outputVars.Set(v.id, ptr.pointee)
	case StorageClassPushConstant:
		_, _, structIdx := r.resolveType(ptr.pointee)
		r.proc.PushConstantStruct = structIdx
	}
}

// resolveType implements spec §4.3 "Struct/member realization":
// unwraps array wrappers outermost-first, materializes structs on first
// reference, and is order-independent for everything except that
// first-mention struct indexing.
func (r *reflector) resolveType(typeID uint32) (Type, []ArrayDim, uint32) {
	rt, ok := r.rawTypes[typeID]
	if !ok {
		return Type{}, nil, Unknown
	}

	switch rt.op {
	case OpTypeArray, OpTypeRuntimeArray:
		elem := rt.words[1]
		length := Unknown
		if rt.op == OpTypeArray {
			if v, ok := r.constants[rt.words[2]]; ok {
				length = v
			}
		}
		stride := Unknown
		if dec, ok := r.decorations[typeID][DecorationArrayStride]; ok && len(dec) > 0 {
			stride = dec[0]
		}
		innerType, innerDims, structIdx := r.resolveType(elem)
		dims := append([]ArrayDim{{Length: length, Stride: stride}}, innerDims...)
		return innerType, dims, structIdx

	case OpTypeStruct:
		idx, already := r.structIndex[typeID]
		if !already {
			idx = r.materializeStruct(typeID)
		}
		return Type{Kind: TypeKindStruct, StructIndex: idx}, nil, idx

	case OpTypeBool:
		return Type{Kind: TypeKindScalar, Scalar: ScalarBool}, nil, Unknown

	case OpTypeInt:
		sk := ScalarUInt
		if len(rt.words) > 2 && rt.words[2] != 0 {
			sk = ScalarInt
		}
		return Type{Kind: TypeKindScalar, Scalar: sk}, nil, Unknown

	case OpTypeFloat:
		sk := ScalarFloat
		if len(rt.words) > 1 && rt.words[1] == 64 {
			sk = ScalarDouble
		}
		return Type{Kind: TypeKindScalar, Scalar: sk}, nil, Unknown

	case OpTypeVector:
		base, _, _ := r.resolveType(rt.words[1])
		return Type{Kind: TypeKindVector, Scalar: base.Scalar, VecSize: uint8(rt.words[2])}, nil, Unknown

	case OpTypeMatrix:
		col, _, _ := r.resolveType(rt.words[1])
		return Type{Kind: TypeKindMatrix, Scalar: col.Scalar, MatCols: uint8(rt.words[2]), MatRows: col.VecSize}, nil, Unknown

	case OpTypeImage:
		dim := Dim(rt.words[2])
		depth := rt.words[3]
		arrayed := rt.words[4] != 0
		ms := rt.words[5] != 0
		sampled := uint32(0)
		if len(rt.words) > 6 {
			sampled = rt.words[6]
		}
		kind := TypeKindImage
		if dim == DimSubpassData {
			kind = TypeKindSubpassInput
		}
		class := ImageClassSampled
		switch {
		case sampled == 2:
			class = ImageClassStorage
		case depth == 1:
			class = ImageClassShadow
		}
		return Type{Kind: kind, ImageDim: dim, ImageClass: class, ImageArrayed: arrayed, ImageMS: ms}, nil, Unknown

	case OpTypeSampledImage:
		return r.resolveType(rt.words[1])

	default:
		return Type{}, nil, Unknown
	}
}

// materializeStruct resolves typeID's members before registering typeID
// itself, so a struct nested inside another (referenced while resolving
// the outer struct's members) is appended to Structs first and always
// gets a lower index than the struct that contains it (spec §3 invariant
// 1, "nested struct members reference struct indices that always precede
// them in structs"). Valid SPIR-V here has no struct recursion through
// pointers (spec §9), so there is no self-reference to guard against.
func (r *reflector) materializeStruct(typeID uint32) uint32 {
	rt := r.rawTypes[typeID]
	memberTypeIDs := rt.words[1:]
	members := make([]StructMember, len(memberTypeIDs))
	for i, mtID := range memberTypeIDs {
		member := uint32(i)
		mt, arrayDims, structIdx := r.resolveType(mtID)

		offset := Unknown
		if dec, ok := r.memberDecorations[typeID][member][DecorationOffset]; ok && len(dec) > 0 {
			offset = dec[0]
		}
		rowMajor := false
		if _, ok := r.memberDecorations[typeID][member][DecorationRowMajor]; ok {
			rowMajor = true
		}
		matrixStride := Unknown
		if dec, ok := r.memberDecorations[typeID][member][DecorationMatrixStride]; ok && len(dec) > 0 {
			matrixStride = dec[0]
		}

		members[i] = StructMember{
			Name:          r.memberNames[typeID][member],
			Offset:        offset,
			Size:          memberSize(mt, arrayDims, matrixStride, rowMajor),
			Type:          mt,
			StructIndex:   structIdx,
			ArrayElements: arrayDims,
			RowMajor:      rowMajor,
		}
	}

	idx := uint32(len(r.proc.Structs))
	r.structIndex[typeID] = idx
	r.proc.Structs = append(r.proc.Structs, Struct{Name: r.names[typeID], Size: structSize(members), Members: members})
	r.proc.StructIDs = append(r.proc.StructIDs, typeID)
	return idx
}

// memberSize implements the spec §4.3 member footprint rules.
func memberSize(t Type, arrayDims []ArrayDim, matrixStride uint32, rowMajor bool) uint32 {
	if len(arrayDims) > 0 {
		outer := arrayDims[0]
		if outer.Length == Unknown || outer.Stride == Unknown {
			return Unknown
		}
		return outer.Length * outer.Stride
	}
	if t.Kind == TypeKindMatrix {
		if matrixStride == Unknown {
			return Unknown
		}
		n := uint32(t.MatCols)
		if rowMajor {
			n = uint32(t.MatRows)
		}
		return matrixStride * n
	}
	return scalarFootprint(t)
}

func scalarFootprint(t Type) uint32 {
	switch t.Kind {
	case TypeKindScalar:
		if t.Scalar == ScalarDouble {
			return 8
		}
		return 4
	case TypeKindVector:
		unit := uint32(4)
		if t.Scalar == ScalarDouble {
			unit = 8
		}
		return unit * uint32(t.VecSize)
	default:
		return Unknown
	}
}

// structSize implements the spec §4.3 struct footprint rule: offset of the
// last member plus its size, rounded up to 16 bytes; Unknown if the last
// member's size is undetermined (a trailing runtime array).
func structSize(members []StructMember) uint32 {
	if len(members) == 0 {
		return 0
	}
	last := members[len(members)-1]
	if last.Size == Unknown || last.Offset == Unknown {
		return Unknown
	}
	return roundUp16(last.Offset + last.Size)
}

func roundUp16(v uint32) uint32 {
	return (v + 15) &^ 15
}

func (r *reflector) unwrapToBase(typeID uint32) uint32 {
	for {
		rt, ok := r.rawTypes[typeID]
		if !ok || (rt.op != OpTypeArray && rt.op != OpTypeRuntimeArray) {
			return typeID
		}
		typeID = rt.words[1]
	}
}

func (r *reflector) descriptorInfo(id uint32) (set, binding uint32) {
	set, binding = Unknown, Unknown
	if dec, ok := r.decorations[id][DecorationDescriptorSet]; ok && len(dec) > 0 {
		set = dec[0]
	}
	if dec, ok := r.decorations[id][DecorationBinding]; ok && len(dec) > 0 {
		binding = dec[0]
	}
	return
}

// buildUniforms realizes Uniforms/UniformIDs from uniformVars (id-sorted,
// per spec §9) followed by imageVars (name-sorted, per spec §9's explicit
// note that image ids are "ultimately sorted by name post-reflection").
func (r *reflector) buildUniforms() {
	r.proc.uniformVars.Scan(func(id, pointee uint32) bool {
		r.proc.Uniforms = append(r.proc.Uniforms, r.uniformFromBlock(id, pointee))
		r.proc.UniformIDs = append(r.proc.UniformIDs, id)
		return true
	})

	type imgEntry struct {
		id, pointee uint32
		name        string
	}
	var images []imgEntry
	r.proc.imageVars.Scan(func(id, pointee uint32) bool {
		images = append(images, imgEntry{id, pointee, r.names[id]})
		return true
	})
	sort.Slice(images, func(i, j int) bool { return images[i].name < images[j].name })
	for _, im := range images {
		r.proc.Uniforms = append(r.proc.Uniforms, r.uniformFromImage(im.id, im.pointee, im.name))
		r.proc.UniformIDs = append(r.proc.UniformIDs, im.id)
	}
}

func (r *reflector) uniformFromBlock(id, pointee uint32) Uniform {
	t, arrayDims, structIdx := r.resolveType(pointee)
	kind := UniformBlockBuffer
	base := r.unwrapToBase(pointee)
	if r.blocks[base] {
		kind = UniformBlock
	}
	set, binding := r.descriptorInfo(id)
	return Uniform{
		Name:                 r.names[id],
		Kind:                 kind,
		Type:                 t,
		StructIndex:          structIdx,
		ArrayElements:        arrayDims,
		DescriptorSet:        set,
		Binding:              binding,
		InputAttachmentIndex: Unknown,
		SamplerIndex:         Unknown,
	}
}

func (r *reflector) uniformFromImage(id, pointee uint32, name string) Uniform {
	t, _, _ := r.resolveType(pointee)
	kind := UniformSampledImage
	switch {
	case t.Kind == TypeKindSubpassInput:
		kind = UniformSubpassInput
	case t.Kind == TypeKindImage && t.ImageClass == ImageClassStorage:
		kind = UniformImage
	}
	set, binding := r.descriptorInfo(id)
	inputAttachment := Unknown
	if dec, ok := r.decorations[id][DecorationInputAttachmentIndex]; ok && len(dec) > 0 {
		inputAttachment = dec[0]
	}
	return Uniform{
		Name:                 name,
		Kind:                 kind,
		Type:                 t,
		StructIndex:          Unknown,
		DescriptorSet:        set,
		Binding:              binding,
		InputAttachmentIndex: inputAttachment,
		SamplerIndex:         Unknown,
	}
}

// buildInputsOutputs realizes Inputs/Outputs per spec §4.3 "Input/Output
// reconstruction". Interfaces that violate the per-stage arraying
// invariant are reported to the bag and dropped; this is a recoverable
// error, not a fatal one (spec §7 propagation policy).
func (r *reflector) buildInputsOutputs() {
	r.reflectVarSet(r.proc.inputVars, &r.proc.Inputs, &r.proc.InputIDs, "input", parse.RequiresInputArraying(r.proc.Stage))
	r.reflectVarSet(r.proc.outputVars, &r.proc.Outputs, &r.proc.OutputIDs, "output", parse.RequiresOutputArraying(r.proc.Stage))
}

func (r *reflector) reflectVarSet(vars *btree.Map[uint32, uint32], list *[]InputOutput, ids *[]uint32, kind string, requiresArraying bool) {
	vars.Scan(func(id, pointee uint32) bool {
		io, skip := r.reflectIO(id, pointee, kind, requiresArraying)
		if !skip {
			*list = append(*list, io)
			*ids = append(*ids, id)
		}
		return true
	})
}

func (r *reflector) reflectIO(id, pointee uint32, kind string, requiresArraying bool) (InputOutput, bool) {
	name := r.names[id]
	patch := false
	if _, ok := r.decorations[id][DecorationPatch]; ok {
		patch = true
	}

	t, arrayDims, structIdx := r.resolveType(pointee)

	if t.Kind == TypeKindStruct {
		base := r.unwrapToBase(pointee)
		st := r.proc.Structs[structIdx]
		if len(st.Members) > 0 && r.memberHasBuiltIn(base, 0) {
			return InputOutput{}, true // built-in block (e.g. gl_PerVertex): dropped
		}

		hasOuterArray := len(arrayDims) > 0
		if hasOuterArray != requiresArraying {
			r.bag.Addf(r.org, "%s interface block '%s' arraying does not match stage %s requirements", kind, name, r.proc.Stage)
			return InputOutput{}, true
		}

		memberLocs := make([]MemberLocation, len(st.Members))
		for i := range st.Members {
			member := uint32(i)
			loc, comp := Unknown, Unknown
			if dec, ok := r.memberDecorations[base][member][DecorationLocation]; ok && len(dec) > 0 {
				loc = dec[0]
			}
			if dec, ok := r.memberDecorations[base][member][DecorationComponent]; ok && len(dec) > 0 {
				comp = dec[0]
			}
			memberLocs[i] = MemberLocation{Location: loc, Component: comp}
		}

		return InputOutput{
			Name:            name,
			Type:            t,
			StructIndex:     structIdx,
			ArrayElements:   flattenLengths(arrayDims),
			MemberLocations: memberLocs,
			Patch:           patch,
			Location:        Unknown,
			Component:       Unknown,
		}, false
	}

	if dec, ok := r.decorations[id][DecorationBuiltIn]; ok && len(dec) > 0 {
		r.recordBuiltinCount(BuiltIn(dec[0]), arrayDims)
		return InputOutput{}, true
	}

	loc, comp := Unknown, Unknown
	if dec, ok := r.decorations[id][DecorationLocation]; ok && len(dec) > 0 {
		loc = dec[0]
	}
	if dec, ok := r.decorations[id][DecorationComponent]; ok && len(dec) > 0 {
		comp = dec[0]
	}

	return InputOutput{
		Name:          name,
		Type:          t,
		StructIndex:   Unknown,
		ArrayElements: flattenLengths(arrayDims),
		Patch:         patch,
		Location:      loc,
		Component:     comp,
	}, false
}

func (r *reflector) memberHasBuiltIn(structTypeID, member uint32) bool {
	_, ok := r.memberDecorations[structTypeID][member][DecorationBuiltIn]
	return ok
}

func (r *reflector) recordBuiltinCount(bi BuiltIn, arrayDims []ArrayDim) {
	n := uint32(0)
	if len(arrayDims) > 0 && arrayDims[0].Length != Unknown {
		n = arrayDims[0].Length
	}
	switch bi {
	case BuiltInClipDistance:
		r.proc.ClipDistanceCount = n
	case BuiltInCullDistance:
		r.proc.CullDistanceCount = n
	}
}

func flattenLengths(dims []ArrayDim) []uint32 {
	if len(dims) == 0 {
		return nil
	}
	out := make([]uint32, len(dims))
	for i, d := range dims {
		out[i] = d.Length
	}
	return out
}
