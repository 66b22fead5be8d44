package spv

import "fmt"

// Instruction is one decoded (opcode, wordCount, operands) record from the
// SPIR-V word stream, the minimal unit the Reader hands out (spec §9,
// "the SPIR-V reader is a cooperative forward scan ... a lazy sequence of
// decoded instructions, finite, non-restartable").
type Instruction struct {
	Op     Op
	Words  []uint32 // operand words, excluding the opcode/wordCount header word
	Offset int      // word index of the header word, for rewriting
}

// Reader walks a SPIR-V module's instruction stream forward-only, from
// word 5 (just past the 5-word header) to the first OpFunction or the end
// of the module.
type Reader struct {
	words []uint32
	pos   int
	done  bool
}

// NewReader validates the 5-word header (magic, version, generator,
// bound, schema) and returns a Reader positioned at the first instruction.
func NewReader(words []uint32, maxVersion uint32) (*Reader, uint32, error) {
	if len(words) < 5 {
		return nil, 0, fmt.Errorf("truncated SPIR-V module: fewer than 5 header words")
	}
	if words[0] != Magic {
		return nil, 0, fmt.Errorf("invalid SPIR-V magic: 0x%08x", words[0])
	}
	version := words[1]
	if version < 0x00010000 || version > maxVersion {
		return nil, 0, fmt.Errorf("SPIR-V version 0x%08x out of supported range", version)
	}
	return &Reader{words: words, pos: 5}, words[3], nil
}

// Next decodes the next instruction, or returns ok=false once OpFunction
// has been consumed or the stream is exhausted.
func (r *Reader) Next() (Instruction, bool, error) {
	if r.done || r.pos >= len(r.words) {
		return Instruction{}, false, nil
	}
	header := r.words[r.pos]
	wordCount := int(header >> 16)
	opcode := Op(header & 0xffff)
	if wordCount == 0 || r.pos+wordCount > len(r.words) {
		return Instruction{}, false, fmt.Errorf("truncated instruction at word %d (opcode %d, wordCount %d)", r.pos, opcode, wordCount)
	}
	inst := Instruction{Op: opcode, Words: r.words[r.pos+1 : r.pos+wordCount], Offset: r.pos}
	r.pos += wordCount
	if opcode == OpFunction {
		r.done = true
	}
	return inst, true, nil
}

// readString decodes a NUL-terminated literal string packed into words
// starting at word index 0 of ops, returning the string and the number of
// words it occupied.
func readString(ops []uint32) (string, int) {
	buf := make([]byte, 0, len(ops)*4)
	for i, w := range ops {
		b := [4]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		for _, c := range b {
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(ops)
}
