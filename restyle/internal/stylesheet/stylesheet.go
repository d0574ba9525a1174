// Package stylesheet injects and removes the palette <style> elements.
// Elements are addressed by well-known IDs so insertion is idempotent and
// deactivation can remove exactly what activation added.
package stylesheet

import (
	_ "embed"
	"fmt"

	"github.com/go-rod/rod"
)

// Well-known element IDs.
const (
	// BaseID is the static Dim stylesheet shipped with redim.
	BaseID = "redim-palette"
	// DynamicID is the stylesheet generated from the palette map at
	// activation time.
	DynamicID = "redim-palette-dynamic"
)

//go:embed dim.css
var baseCSS string

// Base returns the static Dim stylesheet text.
func Base() string {
	return baseCSS
}

// Ensure upserts a <style> element: created if absent, text replaced only
// when it differs. Safe to call repeatedly.
func Ensure(page *rod.Page, id, css string) error {
	_, err := page.Eval(`(id, css) => {
		let el = document.getElementById(id);
		if (!el) {
			el = document.createElement('style');
			el.id = id;
			(document.head || document.documentElement).appendChild(el);
		}
		if (el.textContent !== css) {
			el.textContent = css;
		}
	}`, id, css)
	if err != nil {
		return fmt.Errorf("stylesheet: ensure %s: %w", id, err)
	}
	return nil
}

// Remove deletes a <style> element by ID. Absent is fine.
func Remove(page *rod.Page, id string) error {
	_, err := page.Eval(`id => {
		const el = document.getElementById(id);
		if (el) {
			el.remove();
		}
	}`, id)
	if err != nil {
		return fmt.Errorf("stylesheet: remove %s: %w", id, err)
	}
	return nil
}

// Present reports whether a <style> element with the ID exists.
func Present(page *rod.Page, id string) (bool, error) {
	res, err := page.Eval(`id => !!document.getElementById(id)`, id)
	if err != nil {
		return false, fmt.Errorf("stylesheet: check %s: %w", id, err)
	}
	return res.Value.Bool(), nil
}
