package corrector

import (
	"fmt"

	"github.com/go-rod/rod"
)

// CDPElement adapts a live rod element. Style access goes through the
// element's CSSOM (`this.style`) so reads see exactly what a rewrite will
// replace, and the CorrectionRecord is stored on the element itself as the
// RecordAttr attribute.
type CDPElement struct {
	el  *rod.Element
	tag string
}

// FromRod wraps a rod element, resolving its tag name once.
func FromRod(el *rod.Element) (*CDPElement, error) {
	res, err := el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return nil, fmt.Errorf("corrector: resolve tag: %w", err)
	}
	return &CDPElement{el: el, tag: res.Value.Str()}, nil
}

func (e *CDPElement) Tag() string {
	return e.tag
}

func (e *CDPElement) BackgroundColor() (string, error) {
	res, err := e.el.Eval(`() => this.style.backgroundColor`)
	if err != nil {
		return "", fmt.Errorf("corrector: read background: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *CDPElement) SetBackgroundColor(value string) error {
	_, err := e.el.Eval(`v => { this.style.backgroundColor = v }`, value)
	if err != nil {
		return fmt.Errorf("corrector: write background: %w", err)
	}
	return nil
}

func (e *CDPElement) Original() (string, bool, error) {
	v, err := e.el.Attribute(RecordAttr)
	if err != nil {
		return "", false, fmt.Errorf("corrector: read record: %w", err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *CDPElement) SetOriginal(value string) error {
	_, err := e.el.Eval(`(k, v) => this.setAttribute(k, v)`, RecordAttr, value)
	if err != nil {
		return fmt.Errorf("corrector: store record: %w", err)
	}
	return nil
}

func (e *CDPElement) ClearOriginal() error {
	_, err := e.el.Eval(`k => this.removeAttribute(k)`, RecordAttr)
	if err != nil {
		return fmt.Errorf("corrector: clear record: %w", err)
	}
	return nil
}
