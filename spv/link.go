package spv

import (
	"fmt"

	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/parse"
	"github.com/gogpu/mslc/token"
)

// locationSlots is a bitmap of the 4 components at one location index,
// used by the assigner to detect overlap (spec §4.4 assignInputs/Outputs).
type locationSlots map[uint32]uint8 // location -> claimed-component bitmask

func (s locationSlots) claim(location uint32, componentMask uint8) bool {
	if s[location]&componentMask != 0 {
		return false
	}
	s[location] |= componentMask
	return true
}

// footprint describes how many components of one location a single
// (non-array) element occupies, and whether it spans a second location
// (DVec3/DVec4), per the spec §4.4 footprint table.
type footprint struct {
	components  uint8 // bitmask in the first location, e.g. 0b0011 for a 2-component value
	secondFull  bool  // DVec4: the second location is entirely claimed
	secondMask  uint8 // DVec3: 0b0011 in the second location
}

func componentsFootprint(t Type) footprint {
	switch t.Kind {
	case TypeKindScalar:
		if t.Scalar == ScalarDouble {
			return footprint{components: 0b0011} // Double: 2 components, at component 0 or 2
		}
		return footprint{components: 0b0001}
	case TypeKindVector:
		if t.Scalar == ScalarDouble {
			switch t.VecSize {
			case 2:
				return footprint{components: 0b1111}
			case 3:
				return footprint{components: 0b1111, secondMask: 0b0011}
			case 4:
				return footprint{components: 0b1111, secondFull: true}
			}
		}
		return footprint{components: uint8(1<<t.VecSize) - 1}
	case TypeKindMatrix:
		// one column's footprint; the caller multiplies by MatCols.
		return componentsFootprint(Type{Kind: TypeKindVector, Scalar: t.Scalar, VecSize: t.MatRows})
	default:
		return footprint{components: 0b1111}
	}
}

// elementCount returns how many consecutive locations one instance of t
// starts at (matrices: one per column; everything else: one). The spill of
// a DVec3/DVec4 into the following location is carried by its footprint.
func elementCount(t Type) uint32 {
	if t.Kind == TypeKindMatrix {
		return uint32(t.MatCols)
	}
	return 1
}

// arrayMultiplier returns the element repeat count contributed by
// arrayElements, dropping the outermost dimension when it is consumed by
// stage arraying rather than location footprint (spec §4.4).
func arrayMultiplier(lengths []uint32, stageArrayed bool) uint32 {
	n := uint32(1)
	for i, l := range lengths {
		if i == 0 && stageArrayed {
			continue
		}
		if l == Unknown || l == 0 {
			continue
		}
		n *= l
	}
	return n
}

type assignable struct {
	name         string
	typ          Type
	lengths      []uint32
	location     *uint32
	component    *uint32
	stageArrayed bool
}

// assignLocations implements spec §4.4 assignInputs/assignOutputs: fills
// Unknown locations with a linear allocator, or validates explicit ones,
// failing on any overlap. Mixing explicit and implicit within one set is a
// linker error.
func assignLocations(items []assignable) error {
	explicit, implicit := 0, 0
	for _, it := range items {
		if *it.location != Unknown {
			explicit++
		} else {
			implicit++
		}
	}
	if explicit > 0 && implicit > 0 {
		return fmt.Errorf("mixed explicit and implicit locations in the same interface")
	}

	slots := locationSlots{}
	cur := uint32(0)

	for i := range items {
		it := &items[i]
		fp := componentsFootprint(it.typ)
		count := elementCount(it.typ) * arrayMultiplier(it.lengths, it.stageArrayed)

		if *it.location != Unknown {
			loc := *it.location
			comp := uint32(0)
			if it.component != nil && *it.component != Unknown {
				comp = *it.component
			}
			if !claimRun(slots, loc, count, fp, uint8(comp)) {
				return fmt.Errorf("cannot assign location for %s", it.name)
			}
			continue
		}

		for !claimRun(slots, cur, count, fp, 0) {
			cur++
			if cur > 1<<20 {
				return fmt.Errorf("cannot assign location for %s", it.name)
			}
		}
		*it.location = cur
		if it.component != nil {
			*it.component = 0
		}
		cur += count
		if fp.secondFull || fp.secondMask != 0 {
			cur++
		}
	}
	return nil
}

func claimRun(slots locationSlots, loc, count uint32, fp footprint, baseComponent uint8) bool {
	mask := fp.components << baseComponent
	saved := map[uint32]uint8{}
	ok := true
	claim := func(l uint32, m uint8) {
		saved[l] = slots[l]
		if !slots.claim(l, m) {
			ok = false
		}
	}
	for i := uint32(0); i < count && ok; i++ {
		claim(loc+i, mask)
	}
	if ok && fp.secondFull {
		claim(loc+count, 0b1111)
	}
	if ok && fp.secondMask != 0 {
		claim(loc+count, fp.secondMask)
	}
	if !ok {
		for l, v := range saved {
			slots[l] = v
		}
	}
	return ok
}

// AssignInputs fills Unknown locations on p.Inputs.
func (p *SpirVProcessor) AssignInputs() error {
	return p.assignIO(p.Inputs, parse.RequiresInputArraying(p.Stage))
}

// AssignOutputs fills Unknown locations on p.Outputs.
func (p *SpirVProcessor) AssignOutputs() error {
	return p.assignIO(p.Outputs, parse.RequiresOutputArraying(p.Stage))
}

func (p *SpirVProcessor) assignIO(items []InputOutput, stageArrayed bool) error {
	var flat []assignable
	type autoTrack struct {
		io        *InputOutput
		wasUnknown bool
	}
	var tracked []autoTrack

	for i := range items {
		io := &items[i]
		if io.StructIndex != Unknown {
			st := &p.Structs[io.StructIndex]
			wasUnknown := false
			for m := range io.MemberLocations {
				ml := &io.MemberLocations[m]
				if ml.Location == Unknown {
					wasUnknown = true
				}
				member := &st.Members[m]
				lengths := make([]uint32, len(member.ArrayElements))
				for d, ad := range member.ArrayElements {
					lengths[d] = ad.Length
				}
				flat = append(flat, assignable{
					name:      fmt.Sprintf("%s.%s", io.Name, member.Name),
					typ:       member.Type,
					lengths:   lengths,
					location:  &ml.Location,
					component: &ml.Component,
				})
			}
			tracked = append(tracked, autoTrack{io: io, wasUnknown: wasUnknown})
			continue
		}
		tracked = append(tracked, autoTrack{io: io, wasUnknown: io.Location == Unknown})
		flat = append(flat, assignable{
			name:         io.Name,
			typ:          io.Type,
			lengths:      io.ArrayElements,
			location:     &io.Location,
			component:    &io.Component,
			stageArrayed: stageArrayed,
		})
	}

	if err := assignLocations(flat); err != nil {
		return err
	}
	for _, t := range tracked {
		if t.wasUnknown {
			t.io.AutoAssigned = true
		}
	}
	return nil
}

// LinkInputs implements spec §4.4 linkInputs(prev): fills locations on
// p.Inputs that lack one by matching the previous stage's outputs by name.
func (p *SpirVProcessor) LinkInputs(prev *SpirVProcessor, bag *diag.Bag) {
	org := token.Origin{FileName: p.Origin}

	for i := range p.Inputs {
		in := &p.Inputs[i]
		if in.StructIndex != Unknown {
			p.linkBlockInput(in, prev, bag, org)
			continue
		}
		if in.Location != Unknown {
			continue
		}
		out, ok := findOutputByName(prev, in.Name)
		if !ok {
			bag.Addf(org, "cannot find output with name %s in stage %s", in.Name, prev.Stage)
			continue
		}
		if !typesLinkCompatible(in.Type, in.ArrayElements, out.Type, out.ArrayElements) || in.Patch != out.Patch {
			bag.Addf(org, "type mismatch when linking input %s in stage %s", in.Name, p.Stage)
			continue
		}
		in.Location, in.Component = out.Location, out.Component
	}
}

func (p *SpirVProcessor) linkBlockInput(in *InputOutput, prev *SpirVProcessor, bag *diag.Bag, org token.Origin) {
	st := p.Structs[in.StructIndex]
	for m := range st.Members {
		member := &st.Members[m]
		loc := &in.MemberLocations[m]
		if loc.Location != Unknown {
			continue
		}
		matches := findOutputBlockMembersByName(prev, member.Name)
		switch len(matches) {
		case 0:
			bag.Addf(org, "cannot find output interface block member with name %s", member.Name)
		case 1:
			outMember, outLoc := matches[0].member, matches[0].loc
			if !typesEqual(member.Type, outMember.Type) {
				bag.Addf(org, "type mismatch when linking input %s in stage %s", member.Name, p.Stage)
				continue
			}
			loc.Location, loc.Component = outLoc.Location, outLoc.Component
		default:
			bag.Addf(org, "multiple members from output interface blocks match the name %s", member.Name)
		}
	}
}

type blockMemberMatch struct {
	member *StructMember
	loc    MemberLocation
}

func findOutputBlockMembersByName(prev *SpirVProcessor, name string) []blockMemberMatch {
	var matches []blockMemberMatch
	for i := range prev.Outputs {
		out := &prev.Outputs[i]
		if out.StructIndex == Unknown {
			continue
		}
		st := prev.Structs[out.StructIndex]
		for m := range st.Members {
			if st.Members[m].Name == name {
				matches = append(matches, blockMemberMatch{member: &st.Members[m], loc: out.MemberLocations[m]})
			}
		}
	}
	return matches
}

func findOutputByName(prev *SpirVProcessor, name string) (InputOutput, bool) {
	for _, out := range prev.Outputs {
		if out.StructIndex == Unknown && out.Name == name {
			return out, true
		}
	}
	return InputOutput{}, false
}

// typesLinkCompatible compares type and array shape after removing the
// leading stage-arraying dimension independently from each side (spec
// §4.4 linkInputs validation).
func typesLinkCompatible(a Type, aLen []uint32, b Type, bLen []uint32) bool {
	if !typesEqual(a, b) {
		return false
	}
	return sliceEqualUint32(dropLeading(aLen), dropLeading(bLen))
}

func dropLeading(lengths []uint32) []uint32 {
	if len(lengths) == 0 {
		return nil
	}
	return lengths[1:]
}

func sliceEqualUint32(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typesEqual(a, b Type) bool {
	return a.Kind == b.Kind && a.Scalar == b.Scalar && a.VecSize == b.VecSize &&
		a.MatCols == b.MatCols && a.MatRows == b.MatRows &&
		a.ImageDim == b.ImageDim && a.ImageClass == b.ImageClass &&
		a.ImageArrayed == b.ImageArrayed && a.ImageMS == b.ImageMS
}

// UniformsCompatible implements spec §4.4 uniformsCompatible(other):
// cross-stage structural equality of every uniform/struct shared by name.
func (p *SpirVProcessor) UniformsCompatible(other *SpirVProcessor) []string {
	var mismatches []string
	byName := map[string]*Uniform{}
	for i := range other.Uniforms {
		byName[other.Uniforms[i].Name] = &other.Uniforms[i]
	}
	for i := range p.Uniforms {
		u := &p.Uniforms[i]
		ou, ok := byName[u.Name]
		if !ok {
			continue
		}
		if !uniformsEqual(p, u, other, ou) {
			mismatches = append(mismatches, u.Name)
		}
	}
	return mismatches
}

func uniformsEqual(p *SpirVProcessor, u *Uniform, other *SpirVProcessor, ou *Uniform) bool {
	if u.Kind != ou.Kind || !typesEqual(u.Type, ou.Type) ||
		!arrayDimsEqual(u.ArrayElements, ou.ArrayElements) ||
		u.DescriptorSet != ou.DescriptorSet || u.Binding != ou.Binding {
		return false
	}
	if u.StructIndex == Unknown || ou.StructIndex == Unknown {
		return u.StructIndex == ou.StructIndex
	}
	return structsEqual(p.Structs[u.StructIndex], other.Structs[ou.StructIndex])
}

func arrayDimsEqual(a, b []ArrayDim) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func structsEqual(a, b Struct) bool {
	if a.Name != b.Name || a.Size != b.Size || len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		ma, mb := a.Members[i], b.Members[i]
		if ma.Name != mb.Name || ma.Offset != mb.Offset || ma.Size != mb.Size ||
			ma.RowMajor != mb.RowMajor || !typesEqual(ma.Type, mb.Type) ||
			!arrayDimsEqual(ma.ArrayElements, mb.ArrayElements) {
			return false
		}
	}
	return true
}
