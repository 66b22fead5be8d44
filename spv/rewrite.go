package spv

// Strip selects which debug information the rewriter discards (spec
// §4.5).
type Strip uint8

const (
	// StripNone keeps all debug ops.
	StripNone Strip = iota
	// StripAll drops OpSource*, OpString, OpLine, and every OpName/OpMemberName.
	StripAll
	// StripAllButReflection keeps only the OpName/OpMemberName for ids that
	// ended up in the reflection tables.
	StripAllButReflection
)

// dummyBindingSentinel is the placeholder descriptor-set/binding value
// written for uniforms that lack explicit decorations, when requested.
const dummyBindingSentinel = 0xffff

// Rewrite re-emits p's source SPIR-V with debug information stripped per
// mode, auto-assigned Location/Component decorations synthesized for every
// interface that went through the assigner, and (if dummyBindings) a
// DescriptorSet/Binding pair stamped onto uniforms that lack one. All
// remaining instructions are copied verbatim (spec §4.5).
func (p *SpirVProcessor) Rewrite(mode Strip, dummyBindings bool) ([]uint32, error) {
	rd, _, err := NewReader(p.SourceWords, MaxVersion)
	if err != nil {
		return nil, err
	}

	keepName := p.reflectedIDSet()

	out := make([]uint32, 5)
	copy(out, p.SourceWords[:5])

	existingLoc, existingMemberLoc := p.existingLocationDecorations()
	annotationsDone := false

	for {
		inst, ok, err := rd.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		if !annotationsDone && !isAnnotationOrDebug(inst.Op) {
			annotationsDone = true
			out = p.appendSynthesizedDecorations(out, existingLoc, existingMemberLoc, dummyBindings)
		}

		if dropForStrip(inst.Op, mode, inst.Words, keepName) {
			continue
		}

		out = append(out, encodeInstruction(inst)...)
	}

	if !annotationsDone {
		out = p.appendSynthesizedDecorations(out, existingLoc, existingMemberLoc, dummyBindings)
	}

	// The reader stops after the first OpFunction; the function bodies that
	// follow it are copied unchanged.
	out = append(out, p.SourceWords[rd.pos:]...)

	return out, nil
}

func isAnnotationOrDebug(op Op) bool {
	switch op {
	case OpSource, OpSourceContinued, OpSourceExtension, OpString, OpLine,
		OpName, OpMemberName, OpDecorate, OpMemberDecorate:
		return true
	default:
		return false
	}
}

func dropForStrip(op Op, mode Strip, words []uint32, keepName map[uint32]bool) bool {
	switch mode {
	case StripNone:
		return false
	case StripAll:
		switch op {
		case OpSource, OpSourceContinued, OpSourceExtension, OpString, OpLine, OpName, OpMemberName:
			return true
		}
		return false
	case StripAllButReflection:
		switch op {
		case OpSource, OpSourceContinued, OpSourceExtension, OpString, OpLine:
			return true
		case OpName, OpMemberName:
			return len(words) == 0 || !keepName[words[0]]
		}
		return false
	default:
		return false
	}
}

func (p *SpirVProcessor) reflectedIDSet() map[uint32]bool {
	ids := map[uint32]bool{}
	for _, id := range p.StructIDs {
		ids[id] = true
	}
	for _, id := range p.UniformIDs {
		ids[id] = true
	}
	for _, id := range p.InputIDs {
		ids[id] = true
	}
	for _, id := range p.OutputIDs {
		ids[id] = true
	}
	return ids
}

// existingLocationDecorations scans the source stream once for already
// present Location/member-Location decorations, so the synthesizer never
// emits a duplicate.
func (p *SpirVProcessor) existingLocationDecorations() (map[uint32]bool, map[[2]uint32]bool) {
	loc := map[uint32]bool{}
	memberLoc := map[[2]uint32]bool{}

	rd, _, err := NewReader(p.SourceWords, MaxVersion)
	if err != nil {
		return loc, memberLoc
	}
	for {
		inst, ok, err := rd.Next()
		if err != nil || !ok {
			break
		}
		switch inst.Op {
		case OpDecorate:
			if len(inst.Words) >= 2 && Decoration(inst.Words[1]) == DecorationLocation {
				loc[inst.Words[0]] = true
			}
		case OpMemberDecorate:
			if len(inst.Words) >= 3 && Decoration(inst.Words[2]) == DecorationLocation {
				memberLoc[[2]uint32{inst.Words[0], inst.Words[1]}] = true
			}
		}
	}
	return loc, memberLoc
}

func (p *SpirVProcessor) appendSynthesizedDecorations(out []uint32, existingLoc map[uint32]bool, existingMemberLoc map[[2]uint32]bool, dummyBindings bool) []uint32 {
	emitDecorate := func(id uint32, dec Decoration, value uint32) {
		out = append(out, encodeHeader(OpDecorate, 4), id, uint32(dec), value)
	}
	emitMemberDecorate := func(id, member uint32, dec Decoration, value uint32) {
		out = append(out, encodeHeader(OpMemberDecorate, 5), id, member, uint32(dec), value)
	}

	for i, io := range p.Inputs {
		out = p.emitAutoAssigned(out, p.InputIDs[i], io, existingLoc, existingMemberLoc, emitDecorate, emitMemberDecorate)
	}
	for i, io := range p.Outputs {
		out = p.emitAutoAssigned(out, p.OutputIDs[i], io, existingLoc, existingMemberLoc, emitDecorate, emitMemberDecorate)
	}

	if dummyBindings {
		for i, u := range p.Uniforms {
			if p.PushConstantStruct != Unknown && u.StructIndex == p.PushConstantStruct {
				continue
			}
			id := p.UniformIDs[i]
			if u.DescriptorSet == Unknown {
				emitDecorate(id, DecorationDescriptorSet, dummyBindingSentinel)
			}
			if u.Binding == Unknown {
				emitDecorate(id, DecorationBinding, dummyBindingSentinel)
			}
		}
	}

	return out
}

func (p *SpirVProcessor) emitAutoAssigned(
	out []uint32, id uint32, io InputOutput,
	existingLoc map[uint32]bool, existingMemberLoc map[[2]uint32]bool,
	emitDecorate func(id uint32, dec Decoration, value uint32),
	emitMemberDecorate func(id, member uint32, dec Decoration, value uint32),
) []uint32 {
	if !io.AutoAssigned {
		return out
	}
	if io.StructIndex != Unknown {
		for m, ml := range io.MemberLocations {
			key := [2]uint32{id, uint32(m)}
			if existingMemberLoc[key] || ml.Location == Unknown {
				continue
			}
			emitMemberDecorate(id, uint32(m), DecorationLocation, ml.Location)
			if ml.Component != 0 && ml.Component != Unknown {
				emitMemberDecorate(id, uint32(m), DecorationComponent, ml.Component)
			}
		}
		return out
	}
	if existingLoc[id] || io.Location == Unknown {
		return out
	}
	emitDecorate(id, DecorationLocation, io.Location)
	if io.Component != 0 && io.Component != Unknown {
		emitDecorate(id, DecorationComponent, io.Component)
	}
	return out
}

func encodeHeader(op Op, wordCount uint16) uint32 {
	return uint32(wordCount)<<16 | uint32(op)
}

func encodeInstruction(inst Instruction) []uint32 {
	words := make([]uint32, 1+len(inst.Words))
	words[0] = encodeHeader(inst.Op, uint16(1+len(inst.Words)))
	copy(words[1:], inst.Words)
	return words
}
