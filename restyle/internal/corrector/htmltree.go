package corrector

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Tree wraps a parsed HTML document so a correction pass can run without a
// browser: offline audits of saved pages, and tests.
type Tree struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Tree, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("corrector: parse html: %w", err)
	}
	return &Tree{root: root}, nil
}

// Render serialises the (possibly corrected) document.
func (t *Tree) Render(w io.Writer) error {
	return html.Render(w, t.root)
}

// CandidateElements returns every descendant whose inline style plausibly
// contains a background declaration. This is the scan set for a full
// correction pass.
func (t *Tree) CandidateElements() []Element {
	var els []Element
	walk(t.root, func(n *html.Node) {
		if strings.Contains(strings.ToLower(getAttr(n, "style")), "background") {
			els = append(els, &HTMLElement{n: n})
		}
	})
	return els
}

// CorrectedElements returns every descendant currently carrying a
// CorrectionRecord. This is the revert set for a deactivation pass.
func (t *Tree) CorrectedElements() []Element {
	var els []Element
	walk(t.root, func(n *html.Node) {
		if hasAttr(n, RecordAttr) {
			els = append(els, &HTMLElement{n: n})
		}
	})
	return els
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// HTMLElement adapts an x/net/html node to the corrector's Element
// interface. The CorrectionRecord lives in the same attribute the CDP
// implementation uses, so rendered output round-trips between the two.
type HTMLElement struct {
	n *html.Node
}

// NewHTMLElement wraps a parsed element node.
func NewHTMLElement(n *html.Node) *HTMLElement {
	return &HTMLElement{n: n}
}

func (e *HTMLElement) Tag() string {
	return e.n.Data
}

func (e *HTMLElement) BackgroundColor() (string, error) {
	return readDeclaration(getAttr(e.n, "style"), "background-color"), nil
}

func (e *HTMLElement) SetBackgroundColor(value string) error {
	setAttr(e.n, "style", writeDeclaration(getAttr(e.n, "style"), "background-color", value))
	return nil
}

func (e *HTMLElement) Original() (string, bool, error) {
	for _, a := range e.n.Attr {
		if a.Key == RecordAttr {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e *HTMLElement) SetOriginal(value string) error {
	setAttr(e.n, RecordAttr, value)
	return nil
}

func (e *HTMLElement) ClearOriginal() error {
	delAttr(e.n, RecordAttr)
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func delAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// readDeclaration extracts the value of one property from an inline style
// string, "" when absent.
func readDeclaration(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// writeDeclaration replaces (or appends) one property's value inside an
// inline style string, leaving every other declaration untouched.
func writeDeclaration(style, property, value string) string {
	decls := strings.Split(style, ";")
	out := make([]string, 0, len(decls)+1)
	replaced := false
	for _, decl := range decls {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		name, _, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), property) {
			if !replaced && value != "" {
				out = append(out, property+": "+value)
			}
			replaced = true
			continue
		}
		out = append(out, strings.TrimSpace(decl))
	}
	if !replaced && value != "" {
		out = append(out, property+": "+value)
	}
	return strings.Join(out, "; ")
}
