package parse

import (
	"testing"

	"github.com/gogpu/mslc/token"
)

func classifySrc(src string) ElementKind {
	toks := lex(src)
	r := token.Range{Start: 0, Count: uint32(len(toks))}
	return classify(toks, r)
}

// TestClassify covers the element-classification rules of spec §4.1: a
// precision statement, a struct definition, a free (scalar/opaque-free)
// uniform, a uniform block, and the default fallthrough.
func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want ElementKind
	}{
		{"precision", "precision highp float;", Precision},
		{"struct", "struct Light { vec3 pos; };", Struct},
		{"free uniform scalar", "uniform float time;", FreeUniform},
		{"free uniform vector", "uniform vec4 color;", FreeUniform},
		{"uniform block", "uniform Transform { mat4 mvp; };", UniformBlock},
		{"opaque uniform is default", "uniform sampler2D tex;", Default},
		{"plain declaration", "void main() {}", Default},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classifySrc(c.src); got != c.want {
				t.Errorf("classify(%q) = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestElementKindString(t *testing.T) {
	for k := Precision; k <= Default; k++ {
		if k.String() == "unknown" {
			t.Errorf("ElementKind(%d).String() = unknown", k)
		}
	}
	if ElementKind(99).String() != "unknown" {
		t.Errorf("out-of-range ElementKind should stringify to unknown")
	}
}
