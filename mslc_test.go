package mslc_test

import (
	"strings"
	"testing"

	"github.com/gogpu/mslc"
	"github.com/gogpu/mslc/diag"
	"github.com/gogpu/mslc/parse"
	"github.com/gogpu/mslc/spv"
	"github.com/gogpu/mslc/token"
)

// lex is a minimal stand-in for the external preprocessor (spec §1 places
// it out of scope): just enough to turn a literal pipeline declaration plus
// a couple of empty function bodies into a token.List.
func lex(src string) token.List {
	var out token.List
	line, col := uint32(1), uint32(1)
	isIdentStart := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
	}
	isIdentCont := func(b byte) bool { return isIdentStart(b) || (b >= '0' && b <= '9') }

	i := 0
	for i < len(src) {
		start := i
		c := src[i]
		switch {
		case c == '\n':
			out = append(out, token.Token{Value: "\n", Kind: token.Newline, Origin: token.Origin{Line: line, Column: col}})
			i++
			line++
			col = 1
			continue
		case c == ' ' || c == '\t':
			for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
				i++
			}
			out = append(out, token.Token{Value: src[start:i], Kind: token.Whitespace, Origin: token.Origin{Line: line, Column: col}})
		case isIdentStart(c):
			for i < len(src) && isIdentCont(src[i]) {
				i++
			}
			out = append(out, token.Token{Value: src[start:i], Kind: token.Identifier, Origin: token.Origin{Line: line, Column: col}})
		default:
			i++
			out = append(out, token.Token{Value: src[start:i], Kind: token.Symbol, Origin: token.Origin{Line: line, Column: col}})
		}
		col += uint32(i - start)
	}
	return out
}

const testSource = `
pipeline Test {
	vertex = vertMain;
	fragment = fragMain;
}
void vertMain() {}
void fragMain() {}
`

// fakeProgram stands in for the front-end's opaque compiled-program handle.
type fakeProgram struct{ stage parse.Stage }

// fakeFrontEnd is a stub FrontEnd (mslc.go's only external collaborator):
// it records what it was asked to compile and hands back pre-built SPIR-V
// for each stage instead of running a real GLSL compiler.
type fakeFrontEnd struct {
	compiled map[parse.Stage]string
	words    map[parse.Stage][]uint32
}

func newFakeFrontEnd() *fakeFrontEnd {
	return &fakeFrontEnd{
		compiled: map[parse.Stage]string{},
		words:    map[parse.Stage][]uint32{parse.Vertex: vertexModule(), parse.Fragment: fragmentModule()},
	}
}

func (f *fakeFrontEnd) Compile(stage parse.Stage, fileName, source string, mappings []parse.LineMapping, spirvTargetVersion uint32) (mslc.Program, *diag.Bag) {
	f.compiled[stage] = source
	return fakeProgram{stage: stage}, nil
}

func (f *fakeFrontEnd) Link(pipelineName string, programs map[parse.Stage]mslc.Program) *diag.Bag {
	return nil
}

func (f *fakeFrontEnd) Emit(stage parse.Stage) []uint32 { return f.words[stage] }

func (f *fakeFrontEnd) Optimize(words []uint32, flags []mslc.OptimizeFlag) []uint32 { return words }

// header encodes one instruction's (op, wordCount) header word.
func header(op spv.Op, wordCount int) uint32 { return uint32(wordCount)<<16 | uint32(op) }

// packString encodes s the way the reflector's readString decodes it:
// NUL-terminated, little-endian, padded to a whole number of words.
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

// vertexModule declares one unlocated vec4 output, vColor, left for
// mslc's cross-stage linker to auto-assign a location to.
func vertexModule() []uint32 {
	words := []uint32{spv.Magic, 0x00010000, 0, 5, 0}
	emit := func(op spv.Op, operands ...uint32) {
		words = append(words, header(op, 1+len(operands)))
		words = append(words, operands...)
	}
	const floatID, vec4ID, ptrID, varID = 1, 2, 3, 4
	emit(spv.OpTypeFloat, floatID, 32)
	emit(spv.OpTypeVector, vec4ID, floatID, 4)
	emit(spv.OpTypePointer, ptrID, uint32(spv.StorageClassOutput), vec4ID)
	emit(spv.OpVariable, ptrID, varID, uint32(spv.StorageClassOutput))
	emit(spv.OpName, append([]uint32{varID}, packString("vColor")...)...)
	emit(spv.OpFunction, 0, 0, 0, 0)
	return words
}

// fragmentModule declares a matching unlocated vec4 input, vColor, plus an
// unlocated vec4 output, fragColor, exercising both LinkInputs (by name,
// against the vertex stage's auto-assigned output) and AssignOutputs.
func fragmentModule() []uint32 {
	words := []uint32{spv.Magic, 0x00010000, 0, 7, 0}
	emit := func(op spv.Op, operands ...uint32) {
		words = append(words, header(op, 1+len(operands)))
		words = append(words, operands...)
	}
	const floatID, vec4ID, inPtrID, inVarID, outPtrID, outVarID = 1, 2, 3, 4, 5, 6
	emit(spv.OpTypeFloat, floatID, 32)
	emit(spv.OpTypeVector, vec4ID, floatID, 4)
	emit(spv.OpTypePointer, inPtrID, uint32(spv.StorageClassInput), vec4ID)
	emit(spv.OpVariable, inPtrID, inVarID, uint32(spv.StorageClassInput))
	emit(spv.OpName, append([]uint32{inVarID}, packString("vColor")...)...)
	emit(spv.OpTypePointer, outPtrID, uint32(spv.StorageClassOutput), vec4ID)
	emit(spv.OpVariable, outPtrID, outVarID, uint32(spv.StorageClassOutput))
	emit(spv.OpName, append([]uint32{outVarID}, packString("fragColor")...)...)
	emit(spv.OpFunction, 0, 0, 0, 0)
	return words
}

// TestCompileModuleEndToEnd drives Compiler.CompileModule through a fake
// FrontEnd: parse, synthesize per-stage GLSL, "compile" to canned SPIR-V,
// reflect, link vertex output to fragment input by name, and rewrite.
func TestCompileModuleEndToEnd(t *testing.T) {
	front := newFakeFrontEnd()
	c := &mslc.Compiler{
		FrontEnd:           front,
		SPIRVTargetVersion: 0x00010300,
	}

	pipelines, samplers, bag := c.CompileModule(lex(testSource))
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Messages())
	}
	if len(samplers) != 0 {
		t.Fatalf("len(samplers) = %d, want 0", len(samplers))
	}
	if len(pipelines) != 1 {
		t.Fatalf("len(pipelines) = %d, want 1", len(pipelines))
	}

	pl := pipelines[0]
	if pl.Name != "Test" {
		t.Errorf("pipeline name = %q, want Test", pl.Name)
	}
	if len(pl.Shaders) != 2 {
		t.Fatalf("len(Shaders) = %d, want 2 (vertex, fragment)", len(pl.Shaders))
	}

	vs, ok := pl.Shaders[parse.Vertex]
	if !ok {
		t.Fatalf("no vertex shader in compiled pipeline")
	}
	if !strings.Contains(front.compiled[parse.Vertex], "void main()") {
		t.Errorf("vertex source entry point was not renamed to main: %q", front.compiled[parse.Vertex])
	}
	if len(vs.Processor.Outputs) != 1 || vs.Processor.Outputs[0].Name != "vColor" {
		t.Fatalf("vertex Outputs = %+v, want one output named vColor", vs.Processor.Outputs)
	}
	if !vs.Processor.Outputs[0].AutoAssigned {
		t.Errorf("vertex output vColor should have been auto-assigned a location")
	}

	fs, ok := pl.Shaders[parse.Fragment]
	if !ok {
		t.Fatalf("no fragment shader in compiled pipeline")
	}
	if len(fs.Processor.Inputs) != 1 || fs.Processor.Inputs[0].Name != "vColor" {
		t.Fatalf("fragment Inputs = %+v, want one input named vColor", fs.Processor.Inputs)
	}
	if fs.Processor.Inputs[0].Location != vs.Processor.Outputs[0].Location {
		t.Errorf("fragment input vColor linked to location %d, want %d (vertex output's)",
			fs.Processor.Inputs[0].Location, vs.Processor.Outputs[0].Location)
	}
	if len(vs.SpirV) == 0 || len(fs.SpirV) == 0 {
		t.Errorf("expected non-empty rewritten SPIR-V for both stages")
	}
}

// TestCompileModuleDuplicatePipelineIsolatesFailure checks that a parse
// error (a duplicate pipeline name) is reported but does not prevent the
// first declaration from compiling (spec §7's partial-failure isolation).
func TestCompileModuleDuplicatePipelineIsolatesFailure(t *testing.T) {
	const src = `
pipeline Test {
	vertex = vertMain;
	fragment = fragMain;
}
pipeline Test {
	vertex = vertMain;
	fragment = fragMain;
}
void vertMain() {}
void fragMain() {}
`
	front := newFakeFrontEnd()
	c := &mslc.Compiler{FrontEnd: front}

	pipelines, _, bag := c.CompileModule(lex(src))
	if bag.Len() == 0 {
		t.Fatalf("expected a duplicate-pipeline diagnostic")
	}
	if len(pipelines) != 1 {
		t.Fatalf("len(pipelines) = %d, want 1 (only the first declaration)", len(pipelines))
	}
}
