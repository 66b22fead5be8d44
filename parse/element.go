package parse

import "github.com/gogpu/mslc/token"

// ElementKind is the element classification taxonomy (spec §3, "Element
// classification").
type ElementKind uint8

const (
	Precision ElementKind = iota
	Struct
	FreeUniform
	UniformBlock
	Default
)

func (k ElementKind) String() string {
	switch k {
	case Precision:
		return "precision"
	case Struct:
		return "struct"
	case FreeUniform:
		return "free uniform"
	case UniformBlock:
		return "uniform block"
	case Default:
		return "default"
	default:
		return "unknown"
	}
}

// Element is one top-level declaration, classified and tagged with the
// stages it applies to.
type Element struct {
	Kind   ElementKind
	Stages StageMask
	Range  token.Range
}

// classify scans the tokens in r (already stripped of any `[[…]]` filter)
// at depth 0 until the first `{` or the element's end, applying the rules
// of spec §4.1 "Element classification".
func classify(tokens token.List, r token.Range) ElementKind {
	list := r.Slice(tokens)
	depth := 0
	sawUniform := false
	sawOpaque := false
	for _, t := range list {
		if t.IsSkippable() {
			continue
		}
		if t.Kind == token.Symbol {
			switch t.Value {
			case "(", "[":
				depth++
				continue
			case ")", "]":
				depth--
				continue
			case "{":
				if depth == 0 {
					if !sawUniform {
						return Default
					}
					if sawOpaque {
						return Default
					}
					return UniformBlock
				}
				depth++
				continue
			case "}":
				depth--
				continue
			}
			continue
		}
		if t.Kind != token.Identifier || depth != 0 {
			continue
		}
		switch t.Value {
		case "precision":
			return Precision
		case "struct":
			return Struct
		case "uniform":
			sawUniform = true
		default:
			if sawUniform && isOpaqueType(t.Value) {
				sawOpaque = true
			}
		}
	}
	if sawUniform {
		if sawOpaque {
			return Default
		}
		return FreeUniform
	}
	return Default
}
