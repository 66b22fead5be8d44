// Package state defines the render-state and sampler-state data model
// (spec §3, §6) and a pluggable decoder registry for the values that sit
// on the right-hand side of a "key = value ;" entry inside a pipeline or
// sampler_state block.
//
// spec.md frames value decoding as an interface the core merely consumes
// ("Value decoders are specified at interface level"); this package keeps
// that framing — RenderStateRegistry and SamplerStateRegistry are plain
// key-to-decoder maps a caller could swap —
// but also ships the complete default registry, since §8's testable
// scenarios (e.g. scenario 3, address_mode_u decoding) and
// original_source/Compile/test/Parser*StateTest.cpp require one to exist
// to be testable at all.
package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/mslc/token"
)

// Unset is the sentinel distinguishing "not specified in source" from
// every meaningful value, for both integer-valued and enum-valued fields.
// It is an untyped constant (all 32 bits set) so the enum types can use it.
const Unset = 1<<32 - 1

// UnsetFloat is the sentinel for float-valued fields.
var UnsetFloat = float32Unset()

func float32Unset() float32 {
	// A documented sentinel distinct from all legal render-state floats;
	// NaN can't be used as a map/struct equality sentinel, and -1 is a
	// legal value of signed fields such as mip_lod_bias and the depth-bias
	// factors, so the largest finite float32 is used.
	return math.MaxFloat32
}

// Cursor walks a token.Range looking for the next non-skippable token,
// the minimal interface a ValueDecoder needs over the token stream.
type Cursor struct {
	Tokens token.List
	Pos    int
	End    int
}

// NewCursor builds a Cursor over [start,end) of tokens.
func NewCursor(tokens token.List, start, end int) *Cursor {
	return &Cursor{Tokens: tokens, Pos: start, End: end}
}

// Next returns the next non-skippable token and advances past it, or
// false if the cursor is exhausted.
func (c *Cursor) Next() (token.Token, bool) {
	for c.Pos < c.End {
		t := c.Tokens[c.Pos]
		c.Pos++
		if !t.IsSkippable() {
			return t, true
		}
	}
	return token.Token{}, false
}

// Peek returns the next non-skippable token without advancing.
func (c *Cursor) Peek() (token.Token, bool) {
	save := c.Pos
	t, ok := c.Next()
	c.Pos = save
	return t, ok
}

// Rest collects all remaining non-skippable tokens, used by decoders
// (vec4, color-mask) that consume more than one token.
func (c *Cursor) Rest() []token.Token {
	var out []token.Token
	for {
		t, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out
}

// Value is the decoded result of one "key = value" entry. Exactly one of
// the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float32
	Enum  uint32 // index into the enum's value set; decoder-specific meaning
	Mask  uint32 // color-mask bit field, bits 0..3 = R,G,B,A
	Vec4  [4]float32
}

// ValueKind is the closed taxonomy of render-state/sampler-state value
// shapes named in spec §4.2/§6.
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindInt
	KindFloat
	KindEnum
	KindColorMask
	KindVec4
)

// Decoder parses one value off a Cursor positioned just after the "=".
type Decoder func(c *Cursor) (Value, error)

// invalidValueErr formats the literal error text spec §7 names:
// "invalid <kind> value: '<literal>'".
func invalidValueErr(kind string, lit string) error {
	return fmt.Errorf("invalid %s value: '%s'", kind, lit)
}

// DecodeBool decodes true|false|0|1.
func DecodeBool(c *Cursor) (Value, error) {
	t, ok := c.Next()
	if !ok {
		return Value{}, invalidValueErr("bool", "")
	}
	switch t.Value {
	case "true", "1":
		return Value{Kind: KindBool, Bool: true}, nil
	case "false", "0":
		return Value{Kind: KindBool, Bool: false}, nil
	default:
		return Value{}, invalidValueErr("bool", t.Value)
	}
}

// DecodeInt decodes a decimal, octal (leading 0), or hex (leading 0x)
// integer literal. The octal-prefix convention is retained as-is per
// spec §9 Open Question 1.
func DecodeInt(c *Cursor) (Value, error) {
	t, ok := c.Next()
	if !ok || t.Kind != token.IntLit {
		lit := ""
		if ok {
			lit = t.Value
		}
		return Value{}, invalidValueErr("int", lit)
	}
	base := 10
	lit := t.Value
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		base = 16
		lit = lit[2:]
	case len(lit) > 1 && lit[0] == '0':
		base = 8
	}
	n, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		return Value{}, invalidValueErr("int", t.Value)
	}
	return Value{Kind: KindInt, Int: n}, nil
}

// DecodeFloat decodes a float literal with optional leading sign,
// accepting both FloatLit tokens and (for "1" or "-1") IntLit tokens.
func DecodeFloat(c *Cursor) (Value, error) {
	neg := false
	t, ok := c.Next()
	if !ok {
		return Value{}, invalidValueErr("float", "")
	}
	if t.Kind == token.Symbol && (t.Value == "-" || t.Value == "+") {
		neg = t.Value == "-"
		t, ok = c.Next()
		if !ok {
			return Value{}, invalidValueErr("float", "")
		}
	}
	if t.Kind != token.FloatLit && t.Kind != token.IntLit {
		return Value{}, invalidValueErr("float", t.Value)
	}
	f, err := strconv.ParseFloat(t.Value, 32)
	if err != nil {
		return Value{}, invalidValueErr("float", t.Value)
	}
	if neg {
		f = -f
	}
	return Value{Kind: KindFloat, Float: float32(f)}, nil
}

// EnumSet maps accepted source identifiers to their enum ordinal.
type EnumSet map[string]uint32

// DecodeEnum returns a Decoder bound to a closed enumeration and the kind
// name used in the "invalid <kind> value" error text.
func DecodeEnum(kindName string, values EnumSet) Decoder {
	return func(c *Cursor) (Value, error) {
		t, ok := c.Next()
		if !ok {
			return Value{}, invalidValueErr(kindName, "")
		}
		if v, found := values[t.Value]; found {
			return Value{Kind: KindEnum, Enum: v}, nil
		}
		return Value{}, invalidValueErr(kindName, t.Value)
	}
}

// DecodeColorMask decodes "0" or a non-empty subset of R|G|B|A
// concatenated as a single identifier (e.g. "RGBA", "RG", "A").
func DecodeColorMask(c *Cursor) (Value, error) {
	t, ok := c.Next()
	if !ok {
		return Value{}, invalidValueErr("color mask", "")
	}
	if t.Value == "0" {
		return Value{Kind: KindColorMask, Mask: 0}, nil
	}
	var mask uint32
	for _, r := range t.Value {
		var bit uint32
		switch r {
		case 'R':
			bit = 1 << 0
		case 'G':
			bit = 1 << 1
		case 'B':
			bit = 1 << 2
		case 'A':
			bit = 1 << 3
		default:
			return Value{}, invalidValueErr("color mask", t.Value)
		}
		if mask&bit != 0 {
			return Value{}, invalidValueErr("color mask", t.Value)
		}
		mask |= bit
	}
	return Value{Kind: KindColorMask, Mask: mask}, nil
}

// DecodeVec4 decodes "vec4(f,f,f,f)" or "vec4(f)" (the latter broadcasts
// to all four components), used for blend_constant.
func DecodeVec4(c *Cursor) (Value, error) {
	t, ok := c.Next()
	if !ok || t.Value != "vec4" {
		lit := ""
		if ok {
			lit = t.Value
		}
		return Value{}, invalidValueErr("vec4", lit)
	}
	if open, ok := c.Next(); !ok || open.Value != "(" {
		return Value{}, invalidValueErr("vec4", "vec4")
	}

	var comps []float32
	for {
		fv, err := DecodeFloat(c)
		if err != nil {
			return Value{}, invalidValueErr("vec4", "vec4")
		}
		comps = append(comps, fv.Float)
		next, ok := c.Next()
		if !ok {
			return Value{}, invalidValueErr("vec4", "vec4")
		}
		if next.Value == ")" {
			break
		}
		if next.Value != "," {
			return Value{}, invalidValueErr("vec4", "vec4")
		}
	}

	var out [4]float32
	switch len(comps) {
	case 1:
		out = [4]float32{comps[0], comps[0], comps[0], comps[0]}
	case 4:
		copy(out[:], comps)
	default:
		return Value{}, invalidValueErr("vec4", "vec4")
	}
	return Value{Kind: KindVec4, Vec4: out}, nil
}
