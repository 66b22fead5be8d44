package parse

import (
	"strings"

	"github.com/gogpu/mslc/token"
)

// LineMapping records the source origin of each line of a synthesized
// shader string (spec §3). Entries with FileName == "<internal>" mark
// injected padding lines.
type LineMapping struct {
	FileName string
	Line     uint32
}

// internalMapping is the line-mapping entry for synthesized lines that
// have no source counterpart (push-constant wrapper, early-fragment-tests
// prepend).
var internalMapping = LineMapping{FileName: token.InternalOrigin.FileName, Line: 0}

// shaderStringBuilder accumulates the synthesized text and parallel line
// mappings for one createShaderString call.
type shaderStringBuilder struct {
	out      strings.Builder
	mappings []LineMapping
}

func (b *shaderStringBuilder) writeInternalLine(text string) {
	b.out.WriteString(text)
	b.out.WriteByte('\n')
	b.mappings = append(b.mappings, internalMapping)
}

// emitRange writes the tokens in r verbatim, substituting entryPoint with
// "main" at depth (0,0,0) (unless ignoreEntryPoint), and records a
// LineMapping entry each time a '\n' is emitted from a source token.
func (b *shaderStringBuilder) emitRange(tokens token.List, r token.Range, entryPoint string, ignoreEntryPoint bool) {
	list := r.Slice(tokens)
	depthParen, depthBrace, depthBracket := 0, 0, 0
	for i, t := range list {
		switch t.Value {
		case "(":
			depthParen++
		case ")":
			if depthParen > 0 {
				depthParen--
			}
		case "[":
			depthBracket++
		case "]":
			if depthBracket > 0 {
				depthBracket--
			}
		case "{":
			depthBrace++
		case "}":
			if depthBrace > 0 {
				depthBrace--
			}
		}
		atGlobalDepth := depthParen == 0 && depthBrace == 0 && depthBracket == 0

		if t.Kind == token.Newline {
			b.out.WriteByte('\n')
			origin := nextSourceOrigin(list, i+1)
			b.mappings = append(b.mappings, origin)
			continue
		}

		if !ignoreEntryPoint && atGlobalDepth && t.Kind == token.Identifier && t.Value == entryPoint && entryPoint != "" {
			b.out.WriteString("main")
			continue
		}
		b.out.WriteString(t.Value)
	}
}

// nextSourceOrigin finds the origin of the next non-newline token at or
// after index i in list, falling back to the internal mapping if none
// remains (end of range).
func nextSourceOrigin(list token.List, i int) LineMapping {
	for ; i < len(list); i++ {
		if list[i].Kind != token.Newline {
			return LineMapping{FileName: list[i].Origin.FileName, Line: list[i].Origin.Line}
		}
	}
	return internalMapping
}

// CreateShaderString synthesizes the per-stage GLSL for (pipeline, stage),
// per spec §4.1 "Shader-string synthesis".
func (p *Parser) CreateShaderString(pl *Pipeline, s Stage, ignoreEntryPoint, earlyFragmentTests bool) (string, []LineMapping) {
	b := &shaderStringBuilder{}

	entryPoint := ""
	if pl.HasEntryPoint(s) {
		entryPoint = pl.EntryPoints[s].Value
	}

	if earlyFragmentTests && s == Fragment {
		b.writeInternalLine("layout(early_fragment_tests) in;")
	}

	elems := p.elements[s]

	for _, e := range elems {
		if e.Kind != Precision {
			continue
		}
		b.emitRange(p.tokens, e.Range, entryPoint, ignoreEntryPoint)
	}
	for _, e := range elems {
		if e.Kind != Struct {
			continue
		}
		b.emitRange(p.tokens, e.Range, entryPoint, ignoreEntryPoint)
	}

	hasFreeUniform := false
	for _, e := range elems {
		if e.Kind == FreeUniform || (p.opts.RemoveUniformBlocks && e.Kind == UniformBlock) {
			hasFreeUniform = true
			break
		}
	}
	if hasFreeUniform {
		b.writeInternalLine("layout(push_constant) uniform Uniforms")
		b.writeInternalLine("{")
		for _, e := range elems {
			if e.Kind == FreeUniform {
				b.emitRange(p.tokens, e.Range, entryPoint, ignoreEntryPoint)
			}
		}
		if p.opts.RemoveUniformBlocks {
			for _, e := range elems {
				if e.Kind == UniformBlock {
					emitStrippedUniformBlock(b, p.tokens, e.Range, entryPoint, ignoreEntryPoint)
				}
			}
		}
		b.writeInternalLine("} uniforms;")
	}

	if !p.opts.RemoveUniformBlocks {
		for _, e := range elems {
			if e.Kind == UniformBlock {
				b.emitRange(p.tokens, e.Range, entryPoint, ignoreEntryPoint)
			}
		}
	}

	for _, e := range elems {
		if e.Kind != Default {
			continue
		}
		pre := e.Range.ExtraPrefix
		if pre == token.ExtraIn || pre == token.ExtraInArray {
			b.out.WriteString("in ")
		} else if pre == token.ExtraOut {
			b.out.WriteString("out ")
		}
		b.emitRange(p.tokens, e.Range, entryPoint, ignoreEntryPoint)
		if pre == token.ExtraInArray || (pre == token.ExtraOut && requiresOutputArraying(s)) {
			b.out.WriteString("[]")
		}
		if pre != token.ExtraNone {
			b.out.WriteString(";")
		}
	}

	return b.out.String(), b.mappings
}

// emitStrippedUniformBlock emits a UniformBlock element's inner members
// only, dropping the `uniform BlockName { … };` wrapper (spec §4.1 step
// 3, RemoveUniformBlocks absorption).
func emitStrippedUniformBlock(b *shaderStringBuilder, tokens token.List, r token.Range, entryPoint string, ignoreEntryPoint bool) {
	list := r.Slice(tokens)
	openIdx, closeIdx := -1, -1
	depth := 0
	for i, t := range list {
		switch t.Value {
		case "{":
			if depth == 0 && openIdx == -1 {
				openIdx = i
			}
			depth++
		case "}":
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
	}
	if openIdx == -1 || closeIdx == -1 || closeIdx <= openIdx {
		return
	}
	inner := token.Range{Start: r.Start + uint32(openIdx) + 1, Count: uint32(closeIdx - openIdx - 1)}
	b.emitRange(tokens, inner, entryPoint, ignoreEntryPoint)
}
