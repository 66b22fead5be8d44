package parse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/mslc/token"
)

// TestCreateShaderStringRenamesEntryPoint checks the global-scope-only
// entry-point substitution invariant of spec §8: the synthesized string
// contains exactly one occurrence of "main" and no occurrence of the
// original entry-point identifier at global scope.
func TestCreateShaderStringRenamesEntryPoint(t *testing.T) {
	src := dedent(`
uniform float time;
void mainVS() {
  gl_Position = vec4(time);
}
`)
	p := New()
	if err := p.Parse(lex(src), Options{}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	pl := &Pipeline{Name: "Test"}
	pl.EntryPoints[Vertex] = token.Token{Value: "mainVS"}

	out, mappings := p.CreateShaderString(pl, Vertex, false, false)

	if strings.Contains(out, "mainVS") {
		t.Errorf("synthesized string still references original entry point: %q", out)
	}
	if !strings.Contains(out, "void main()") {
		t.Errorf("synthesized string missing renamed entry point: %q", out)
	}
	if got, want := strings.Count(out, "main("), 1; got != want {
		t.Errorf("main( occurs %d times, want %d: %q", got, want, out)
	}

	wantLines := strings.Count(out, "\n")
	if len(mappings) != wantLines {
		t.Errorf("len(mappings) = %d, want %d (one per emitted line)", len(mappings), wantLines)
	}
}

// TestCreateShaderStringLineMappingTable checks the full LineMapping table
// emitted alongside the synthesized string: one entry per emitted newline,
// each giving the file and line of the source token that follows it.
func TestCreateShaderStringLineMappingTable(t *testing.T) {
	src := dedent(`
void mainVS() {
  gl_Position = vec4(time);
}
`)
	p := New()
	if err := p.Parse(lex(src), Options{}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	pl := &Pipeline{Name: "Test"}
	pl.EntryPoints[Vertex] = token.Token{Value: "mainVS"}

	_, mappings := p.CreateShaderString(pl, Vertex, false, false)

	want := []LineMapping{
		{FileName: "test.glsl", Line: 2},
		{FileName: "test.glsl", Line: 3},
	}
	if diff := cmp.Diff(want, mappings); diff != "" {
		t.Errorf("LineMapping table mismatch (-want +got):\n%s", diff)
	}
}

// TestCreateShaderStringWrapsFreeUniformsInPushConstantBlock exercises the
// free-uniform absorption described in spec §4.1 step 3.
func TestCreateShaderStringWrapsFreeUniformsInPushConstantBlock(t *testing.T) {
	src := dedent(`
uniform float time;
uniform vec4 color;
void mainFS() {}
`)
	p := New()
	if err := p.Parse(lex(src), Options{}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	pl := &Pipeline{Name: "Test"}
	pl.EntryPoints[Fragment] = token.Token{Value: "mainFS"}

	out, _ := p.CreateShaderString(pl, Fragment, false, false)

	if !strings.Contains(out, "layout(push_constant) uniform Uniforms") {
		t.Errorf("missing synthesized push-constant wrapper: %q", out)
	}
	if !strings.Contains(out, "} uniforms;") {
		t.Errorf("missing push-constant wrapper close: %q", out)
	}
	if !strings.Contains(out, "uniform float time;") {
		t.Errorf("free uniform 'time' not absorbed into wrapper body: %q", out)
	}
}

// TestCreateShaderStringRemoveUniformBlocksAbsorbsBlockMembers exercises
// RemoveUniformBlocks folding a named uniform block into the push-constant
// wrapper (spec §4.1 step 3, RemoveUniformBlocks absorption) instead of
// leaving its own `uniform BlockName { ... };` declaration.
func TestCreateShaderStringRemoveUniformBlocksAbsorbsBlockMembers(t *testing.T) {
	src := dedent(`
uniform Transform {
  mat4 mvp;
};
void mainVS() {}
`)
	p := New()
	if err := p.Parse(lex(src), Options{RemoveUniformBlocks: true}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	pl := &Pipeline{Name: "Test"}
	pl.EntryPoints[Vertex] = token.Token{Value: "mainVS"}

	out, _ := p.CreateShaderString(pl, Vertex, false, false)

	if !strings.Contains(out, "layout(push_constant) uniform Uniforms") {
		t.Errorf("missing synthesized push-constant wrapper: %q", out)
	}
	if strings.Contains(out, "uniform Transform") {
		t.Errorf("uniform block wrapper should have been stripped: %q", out)
	}
	if !strings.Contains(out, "mat4 mvp;") {
		t.Errorf("block member not absorbed into push-constant wrapper: %q", out)
	}
}
