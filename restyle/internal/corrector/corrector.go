// Package corrector rewrites inline background-color declarations that match
// the Lights Out palette into their Dim replacements, remembering the
// original value on the element itself so disable can restore it exactly.
package corrector

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/redim/palette"
)

// RecordAttr is the element attribute holding the pre-correction inline
// value. Its presence is the CorrectionRecord: at most one per element,
// created on first rewrite, deleted on revert.
const RecordAttr = "data-redim-original"

// Element is the minimal view of a DOM element the corrector needs. The CDP
// implementation wraps a live rod element; the HTML implementation wraps a
// parsed x/net/html node for offline audits and tests.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string
	// BackgroundColor returns the current inline background-color value,
	// "" when the element declares none.
	BackgroundColor() (string, error)
	SetBackgroundColor(value string) error
	// Original returns the stored CorrectionRecord, ok=false when absent.
	Original() (value string, ok bool, err error)
	SetOriginal(value string) error
	ClearOriginal() error
}

// mediaTags are never inspected: their pixels must stay exactly as served.
var mediaTags = map[string]bool{
	"img":     true,
	"video":   true,
	"canvas":  true,
	"picture": true,
	"source":  true,
}

// Corrector applies a palette map to elements.
type Corrector struct {
	pal    *palette.Map
	logger *slog.Logger
}

// New creates a Corrector for the given palette.
func New(pal *palette.Map, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{pal: pal, logger: logger}
}

// Correct inspects one element and rewrites its inline background if it
// matches a palette source. Returns true when a rewrite happened.
//
// Calling Correct twice is a no-op the second time: the rewritten value is a
// palette target, and targets are never lookup keys.
func (c *Corrector) Correct(el Element) (bool, error) {
	if mediaTags[strings.ToLower(el.Tag())] {
		return false, nil
	}

	cur, err := el.BackgroundColor()
	if err != nil {
		return false, err
	}

	v, ok := palette.ParseValue(cur)
	if !ok {
		// Missing or unparseable inline value is "no match", not an error.
		return false, nil
	}

	target, ok := c.pal.Lookup(v.Color)
	if !ok {
		return false, nil
	}

	// First rewrite: store the untouched original verbatim.
	if _, has, err := el.Original(); err != nil {
		return false, err
	} else if !has {
		if err := el.SetOriginal(cur); err != nil {
			return false, err
		}
	}

	out := palette.FormatRGB(target)
	if !v.Opaque() {
		// Transparency is preserved exactly, raw token included.
		out = palette.FormatRGBA(target, v.AlphaRaw)
	}
	if err := el.SetBackgroundColor(out); err != nil {
		return false, err
	}
	return true, nil
}

// Revert restores the element's pre-correction inline value byte for byte
// and deletes the record. No record means no-op.
func (c *Corrector) Revert(el Element) (bool, error) {
	orig, has, err := el.Original()
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	if err := el.SetBackgroundColor(orig); err != nil {
		return false, err
	}
	if err := el.ClearOriginal(); err != nil {
		return false, err
	}
	return true, nil
}

// CorrectAll visits every element in the set. Per-element failures are
// logged and skipped; correction is idempotent and last-write-wins, so
// intra-set order does not matter. Returns the number of rewrites.
func (c *Corrector) CorrectAll(els []Element) int {
	n := 0
	for _, el := range els {
		changed, err := c.Correct(el)
		if err != nil {
			c.logger.Debug("corrector: correct element failed", "tag", el.Tag(), "error", err)
			continue
		}
		if changed {
			n++
		}
	}
	return n
}

// RevertAll reverts every element in the set. Returns the number of
// restored elements.
func (c *Corrector) RevertAll(els []Element) int {
	n := 0
	for _, el := range els {
		reverted, err := c.Revert(el)
		if err != nil {
			c.logger.Debug("corrector: revert element failed", "tag", el.Tag(), "error", err)
			continue
		}
		if reverted {
			n++
		}
	}
	return n
}
