package corrector

import (
	"strings"
	"testing"

	"github.com/hazyhaar/redim/palette"
)

// fakeElement is an in-memory Element for exercising the correction rules
// without any tree.
type fakeElement struct {
	tag      string
	bg       string
	original string
	hasOrig  bool
}

func (f *fakeElement) Tag() string { return f.tag }

func (f *fakeElement) BackgroundColor() (string, error) { return f.bg, nil }

func (f *fakeElement) SetBackgroundColor(v string) error { f.bg = v; return nil }

func (f *fakeElement) Original() (string, bool, error) { return f.original, f.hasOrig, nil }

func (f *fakeElement) SetOriginal(v string) error { f.original, f.hasOrig = v, true; return nil }

func (f *fakeElement) ClearOriginal() error { f.original, f.hasOrig = "", false; return nil }

func newCorrector() *Corrector {
	return New(palette.Default(), nil)
}

func TestCorrect_RewritesMappedColor(t *testing.T) {
	c := newCorrector()
	el := &fakeElement{tag: "div", bg: "rgb(0, 0, 0)"}

	changed, err := c.Correct(el)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a rewrite")
	}
	if el.bg != "rgb(21, 32, 43)" {
		t.Errorf("background: got %q, want rgb(21, 32, 43)", el.bg)
	}
	if !el.hasOrig || el.original != "rgb(0, 0, 0)" {
		t.Errorf("record: got %q (has=%v), want original value stored", el.original, el.hasOrig)
	}
}

func TestCorrect_Idempotent(t *testing.T) {
	c := newCorrector()
	el := &fakeElement{tag: "div", bg: "rgb(0, 0, 0)"}

	if _, err := c.Correct(el); err != nil {
		t.Fatal(err)
	}
	after := el.bg

	changed, err := c.Correct(el)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second pass must be a no-op: target colors are not lookup keys")
	}
	if el.bg != after {
		t.Errorf("background changed on second pass: %q -> %q", after, el.bg)
	}
	if el.original != "rgb(0, 0, 0)" {
		t.Errorf("record overwritten on second pass: %q", el.original)
	}
}

func TestCorrect_PreservesAlpha(t *testing.T) {
	c := newCorrector()

	el := &fakeElement{tag: "div", bg: "rgba(0, 0, 0, 0.5)"}
	if _, err := c.Correct(el); err != nil {
		t.Fatal(err)
	}
	if el.bg != "rgba(21, 32, 43, 0.5)" {
		t.Errorf("half-transparent: got %q, want rgba(21, 32, 43, 0.5)", el.bg)
	}

	// Full opacity collapses to the rgb form.
	el = &fakeElement{tag: "div", bg: "rgba(0, 0, 0, 1)"}
	if _, err := c.Correct(el); err != nil {
		t.Fatal(err)
	}
	if el.bg != "rgb(21, 32, 43)" {
		t.Errorf("opaque rgba: got %q, want rgb(21, 32, 43)", el.bg)
	}
}

func TestCorrect_SkipsMediaTags(t *testing.T) {
	c := newCorrector()
	for _, tag := range []string{"img", "video", "canvas", "picture", "source", "IMG"} {
		el := &fakeElement{tag: tag, bg: "rgb(0, 0, 0)"}
		changed, err := c.Correct(el)
		if err != nil {
			t.Fatal(err)
		}
		if changed || el.bg != "rgb(0, 0, 0)" || el.hasOrig {
			t.Errorf("%s: media element was modified", tag)
		}
	}
}

func TestCorrect_UnmappedAndUnparseable(t *testing.T) {
	c := newCorrector()
	for _, bg := range []string{"rgb(10, 10, 10)", "linear-gradient(black, white)", "inherit", ""} {
		el := &fakeElement{tag: "div", bg: bg}
		changed, err := c.Correct(el)
		if err != nil {
			t.Fatal(err)
		}
		if changed || el.bg != bg {
			t.Errorf("%q: expected passthrough, got %q", bg, el.bg)
		}
	}
}

func TestRevert_RestoresExactOriginal(t *testing.T) {
	c := newCorrector()
	el := &fakeElement{tag: "div", bg: "rgba(0,0,0,.5)"}

	if _, err := c.Correct(el); err != nil {
		t.Fatal(err)
	}
	reverted, err := c.Revert(el)
	if err != nil {
		t.Fatal(err)
	}
	if !reverted {
		t.Fatal("expected a revert")
	}
	if el.bg != "rgba(0,0,0,.5)" {
		t.Errorf("revert: got %q, want the byte-exact original", el.bg)
	}
	if el.hasOrig {
		t.Error("record must be deleted on revert")
	}
}

func TestRevert_NoRecordIsNoop(t *testing.T) {
	c := newCorrector()
	el := &fakeElement{tag: "div", bg: "rgb(21, 32, 43)"}

	reverted, err := c.Revert(el)
	if err != nil {
		t.Fatal(err)
	}
	if reverted || el.bg != "rgb(21, 32, 43)" {
		t.Error("revert without a record must not touch the element")
	}
}

const testDoc = `<html><head></head><body>
<div id="a" style="background-color: rgb(0, 0, 0)"><p>hi</p></div>
<div id="b" style="color: white; background-color: rgba(22, 24, 28, 0.8); border: 0"></div>
<div id="c" style="background-color: rgb(10, 10, 10)"></div>
<img style="background-color: rgb(0, 0, 0)">
<span style="color: red"></span>
</body></html>`

func TestTree_FullPassAndRevert(t *testing.T) {
	c := newCorrector()

	tree, err := Parse(strings.NewReader(testDoc))
	if err != nil {
		t.Fatal(err)
	}

	candidates := tree.CandidateElements()
	// a, b, c and the img carry background declarations; the span does not.
	if len(candidates) != 4 {
		t.Fatalf("candidates: got %d, want 4", len(candidates))
	}

	corrected := c.CorrectAll(candidates)
	if corrected != 2 {
		t.Fatalf("corrected: got %d, want 2 (a and b; c unmapped, img excluded)", corrected)
	}

	var out strings.Builder
	if err := tree.Render(&out); err != nil {
		t.Fatal(err)
	}
	rendered := out.String()
	if !strings.Contains(rendered, "background-color: rgb(21, 32, 43)") {
		t.Error("div a not corrected in rendered output")
	}
	if !strings.Contains(rendered, "background-color: rgba(30, 39, 50, 0.8)") {
		t.Error("div b not corrected with alpha preserved")
	}
	if !strings.Contains(rendered, "color: white") || !strings.Contains(rendered, "border: 0") {
		t.Error("unrelated declarations must survive a rewrite")
	}
	if !strings.Contains(rendered, "background-color: rgb(10, 10, 10)") {
		t.Error("unmapped color must pass through")
	}

	// Deactivation completeness: revert everything, zero records remain.
	reverted := c.RevertAll(tree.CorrectedElements())
	if reverted != 2 {
		t.Fatalf("reverted: got %d, want 2", reverted)
	}
	if left := tree.CorrectedElements(); len(left) != 0 {
		t.Fatalf("records remaining after revert: %d", len(left))
	}

	out.Reset()
	if err := tree.Render(&out); err != nil {
		t.Fatal(err)
	}
	restored := out.String()
	if !strings.Contains(restored, "background-color: rgb(0, 0, 0)") {
		t.Error("div a not restored")
	}
	if !strings.Contains(restored, "background-color: rgba(22, 24, 28, 0.8)") {
		t.Error("div b not restored")
	}
	if strings.Contains(restored, RecordAttr) {
		t.Error("record attribute must not survive revert")
	}
}

func TestWriteDeclaration(t *testing.T) {
	cases := []struct{ style, value, want string }{
		{"background-color: rgb(0, 0, 0)", "rgb(21, 32, 43)", "background-color: rgb(21, 32, 43)"},
		{"color: red; background-color: rgb(0, 0, 0)", "x", "color: red; background-color: x"},
		{"color: red", "x", "color: red; background-color: x"},
		{"background-color: a; background-color: b", "x", "background-color: x"},
	}
	for _, tc := range cases {
		got := writeDeclaration(tc.style, "background-color", tc.value)
		if got != tc.want {
			t.Errorf("writeDeclaration(%q): got %q, want %q", tc.style, got, tc.want)
		}
	}
}

func TestReadDeclaration(t *testing.T) {
	got := readDeclaration("color: red; Background-Color:  rgb(1, 2, 3) ; border: 0", "background-color")
	if got != "rgb(1, 2, 3)" {
		t.Errorf("readDeclaration: got %q", got)
	}
	if readDeclaration("color: red", "background-color") != "" {
		t.Error("absent property must read as empty")
	}
}
