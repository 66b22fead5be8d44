package spv

// moduleBuilder hand-assembles a minimal SPIR-V word stream for reflector
// tests, mirroring the header/instruction layout cmd/spvdis's disassembler
// tables describe (see spv/tables.go).
type moduleBuilder struct {
	words  []uint32
	nextID uint32
}

func newModule() *moduleBuilder {
	return &moduleBuilder{
		words:  []uint32{Magic, 0x00010000, 0, 1, 0},
		nextID: 1,
	}
}

// id allocates and returns a fresh result id.
func (m *moduleBuilder) id() uint32 {
	id := m.nextID
	m.nextID++
	return id
}

// emit appends one instruction with the given opcode and operand words.
func (m *moduleBuilder) emit(op Op, words ...uint32) {
	m.words = append(m.words, encodeHeader(op, uint16(1+len(words))))
	m.words = append(m.words, words...)
}

// finish patches the id bound into the header and returns the word stream.
func (m *moduleBuilder) finish() []uint32 {
	out := make([]uint32, len(m.words))
	copy(out, m.words)
	out[3] = m.nextID
	return out
}

// packString encodes s the way readString decodes it: NUL-terminated,
// little-endian, padded to a whole number of words.
func packString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
	}
	return words
}
