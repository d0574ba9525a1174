package palette

import (
	"strconv"
	"strings"
)

// Value is a parsed inline background-color declaration. Only the legacy
// comma-separated rgb()/rgba() forms are recognised, since that is what the
// CSSOM serialises inline styles to; anything else is treated as "no match"
// rather than an error.
type Value struct {
	Color RGB
	// Alpha is the numeric alpha component, 1 when absent.
	Alpha float64
	// AlphaRaw is the alpha token exactly as written ("0.5", ".5", "1"),
	// kept so a rewrite can carry the author's token through unchanged.
	AlphaRaw string
	HasAlpha bool
}

// Opaque reports whether the value paints with full opacity.
func (v Value) Opaque() bool {
	return !v.HasAlpha || v.Alpha >= 1
}

// ParseValue parses "rgb(r, g, b)" or "rgba(r, g, b, a)" with arbitrary
// whitespace around components. Channels must be integers in [0,255] and
// alpha a number in [0,1]. ok is false for everything else.
func ParseValue(s string) (Value, bool) {
	t := strings.TrimSpace(s)
	lower := strings.ToLower(t)

	var body string
	hasAlpha := false
	switch {
	case strings.HasPrefix(lower, "rgba(") && strings.HasSuffix(lower, ")"):
		body = t[len("rgba(") : len(t)-1]
		hasAlpha = true
	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(lower, ")"):
		body = t[len("rgb(") : len(t)-1]
	default:
		return Value{}, false
	}

	parts := strings.Split(body, ",")
	want := 3
	if hasAlpha {
		want = 4
	}
	if len(parts) != want {
		return Value{}, false
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return Value{}, false
		}
		ch[i] = uint8(n)
	}

	v := Value{Color: RGB{ch[0], ch[1], ch[2]}, Alpha: 1}
	if hasAlpha {
		raw := strings.TrimSpace(parts[3])
		a, err := strconv.ParseFloat(raw, 64)
		if err != nil || a < 0 || a > 1 {
			return Value{}, false
		}
		v.Alpha = a
		v.AlphaRaw = raw
		v.HasAlpha = true
	}
	return v, true
}

// FormatRGB renders the opaque CSSOM serialisation: "rgb(r, g, b)".
func FormatRGB(c RGB) string {
	return "rgb(" + itoa(c.R) + ", " + itoa(c.G) + ", " + itoa(c.B) + ")"
}

// FormatRGBA renders "rgba(r, g, b, a)" with the alpha token verbatim, so
// transparency written as ".5" stays ".5" after a rewrite.
func FormatRGBA(c RGB, alphaRaw string) string {
	return "rgba(" + itoa(c.R) + ", " + itoa(c.G) + ", " + itoa(c.B) + ", " + alphaRaw + ")"
}

func itoa(b uint8) string {
	return strconv.Itoa(int(b))
}
