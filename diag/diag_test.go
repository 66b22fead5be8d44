package diag

import (
	"testing"

	"github.com/gogpu/mslc/token"
)

func TestBagOrderAndContinuation(t *testing.T) {
	var b Bag
	b.Addf(token.Origin{FileName: "a.glsl", Line: 1, Column: 27}, "pipeline of name '%s' already declared", "Test")
	b.Continuedf(token.Origin{FileName: "a.glsl", Line: 1, Column: 10}, "see other declaration of pipeline '%s'", "Test")

	msgs := b.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Continued {
		t.Errorf("first diagnostic should not be flagged continued")
	}
	if !msgs[1].Continued {
		t.Errorf("second diagnostic should be flagged continued")
	}
	if msgs[0].Text != "pipeline of name 'Test' already declared" {
		t.Errorf("unexpected primary text: %q", msgs[0].Text)
	}
	if !b.HasErrors() {
		t.Errorf("HasErrors() = false, want true")
	}
}

func TestBagMergePreservesOrder(t *testing.T) {
	var a, other Bag
	a.Addf(token.Origin{}, "first")
	other.Addf(token.Origin{}, "second")
	other.Addf(token.Origin{}, "third")
	a.Merge(&other)

	got := a.Messages()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("len(Messages()) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("Messages()[%d] = %q, want %q", i, got[i].Text, w)
		}
	}
}

func TestBagMergeNilIsNoop(t *testing.T) {
	var a Bag
	a.Addf(token.Origin{}, "only")
	a.Merge(nil)
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestDiagnosticErrorFormatting(t *testing.T) {
	d := Diagnostic{Origin: token.Origin{FileName: "x.glsl", Line: 3, Column: 5}, Text: "boom"}
	want := "x.glsl:3:5: boom"
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	d2 := Diagnostic{Text: "boom"}
	if got := d2.Error(); got != "boom" {
		t.Errorf("Error() with no origin = %q, want %q", got, "boom")
	}
}
