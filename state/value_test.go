package state

import (
	"testing"

	"github.com/gogpu/mslc/token"
)

func toks(vals ...token.Token) token.List { return token.List(vals) }

func ident(v string) token.Token  { return token.Token{Value: v, Kind: token.Identifier} }
func intLit(v string) token.Token { return token.Token{Value: v, Kind: token.IntLit} }
func symbol(v string) token.Token { return token.Token{Value: v, Kind: token.Symbol} }
func floatLit(v string) token.Token { return token.Token{Value: v, Kind: token.FloatLit} }

func cursorOver(list token.List) *Cursor { return NewCursor(list, 0, len(list)) }

func TestDecodeBool(t *testing.T) {
	for _, v := range []string{"true", "1"} {
		got, err := DecodeBool(cursorOver(toks(ident(v))))
		if err != nil || !got.Bool {
			t.Errorf("DecodeBool(%q) = %v, %v, want true, nil", v, got, err)
		}
	}
	got, err := DecodeBool(cursorOver(toks(ident("false"))))
	if err != nil || got.Bool {
		t.Errorf("DecodeBool(false) = %v, %v, want false, nil", got, err)
	}
	if _, err := DecodeBool(cursorOver(toks(ident("maybe")))); err == nil {
		t.Errorf("DecodeBool(maybe) should error")
	}
}

func TestDecodeIntBases(t *testing.T) {
	cases := []struct {
		lit  string
		want int64
	}{
		{"10", 10},
		{"010", 8},
		{"0x10", 16},
	}
	for _, c := range cases {
		got, err := DecodeInt(cursorOver(toks(intLit(c.lit))))
		if err != nil {
			t.Fatalf("DecodeInt(%q) error: %v", c.lit, err)
		}
		if got.Int != c.want {
			t.Errorf("DecodeInt(%q) = %d, want %d", c.lit, got.Int, c.want)
		}
	}
}

func TestDecodeFloatSign(t *testing.T) {
	got, err := DecodeFloat(cursorOver(toks(symbol("-"), floatLit("1.5"))))
	if err != nil || got.Float != -1.5 {
		t.Errorf("DecodeFloat(-1.5) = %v, %v, want -1.5, nil", got, err)
	}
}

func TestDecodeColorMask(t *testing.T) {
	got, err := DecodeColorMask(cursorOver(toks(ident("RGBA"))))
	if err != nil || got.Mask != 0b1111 {
		t.Errorf("DecodeColorMask(RGBA) = %v, %v, want 0b1111, nil", got, err)
	}
	if _, err := DecodeColorMask(cursorOver(toks(ident("RR")))); err == nil {
		t.Errorf("DecodeColorMask(RR) should error on repeated channel")
	}
}

func TestDecodeVec4Broadcast(t *testing.T) {
	got, err := DecodeVec4(cursorOver(toks(ident("vec4"), symbol("("), floatLit("2"), symbol(")"))))
	if err != nil {
		t.Fatalf("DecodeVec4(vec4(2)) error: %v", err)
	}
	want := [4]float32{2, 2, 2, 2}
	if got.Vec4 != want {
		t.Errorf("DecodeVec4(vec4(2)) = %v, want %v", got.Vec4, want)
	}
}

func TestDecodeVec4FourComponents(t *testing.T) {
	list := toks(ident("vec4"), symbol("("),
		floatLit("1"), symbol(","), floatLit("2"), symbol(","), floatLit("3"), symbol(","), floatLit("4"),
		symbol(")"))
	got, err := DecodeVec4(cursorOver(list))
	if err != nil {
		t.Fatalf("DecodeVec4 error: %v", err)
	}
	want := [4]float32{1, 2, 3, 4}
	if got.Vec4 != want {
		t.Errorf("DecodeVec4 = %v, want %v", got.Vec4, want)
	}
}

// TestSamplerAddressModeDecode is spec §8 scenario 3: sampler_state Test
// {address_mode_u = mirrored_repeat;} decodes addressModeU == MirroredRepeat.
func TestSamplerAddressModeDecode(t *testing.T) {
	reg := DefaultSamplerStateRegistry()
	key, ok := reg.Lookup("address_mode_u")
	if !ok {
		t.Fatal(`Lookup("address_mode_u") not found`)
	}
	v, err := key.Decode(cursorOver(toks(ident("mirrored_repeat"))))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	s := NewSamplerState()
	key.Apply(&s, v)
	if s.AddressModeU != AddressModeMirroredRepeat {
		t.Errorf("AddressModeU = %v, want AddressModeMirroredRepeat", s.AddressModeU)
	}
}
