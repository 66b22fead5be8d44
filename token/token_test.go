package token

import "testing"

func TestIsSkippable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{Whitespace, true},
		{Newline, true},
		{Identifier, false},
		{Symbol, false},
	}
	for _, c := range cases {
		if got := (Token{Kind: c.kind}).IsSkippable(); got != c.want {
			t.Errorf("Token{Kind: %v}.IsSkippable() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestRangeSlice(t *testing.T) {
	list := List{
		{Value: "a", Kind: Identifier},
		{Value: "b", Kind: Identifier},
		{Value: "c", Kind: Identifier},
		{Value: "d", Kind: Identifier},
	}
	r := Range{Start: 1, Count: 2}
	got := r.Slice(list)
	if len(got) != 2 || got[0].Value != "b" || got[1].Value != "c" {
		t.Errorf("Slice() = %v, want [b c]", got)
	}
}

func TestKindString(t *testing.T) {
	if Identifier.String() != "identifier" {
		t.Errorf("Identifier.String() = %q, want %q", Identifier.String(), "identifier")
	}
	if Kind(255).String() != "unknown" {
		t.Errorf("unknown Kind.String() = %q, want %q", Kind(255).String(), "unknown")
	}
}
