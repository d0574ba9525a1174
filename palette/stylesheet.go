package palette

import "strings"

// Stylesheet renders the dynamically generated override rules for the map.
// Each entry produces an attribute-selector rule so elements whose inline
// style already serialised to a Lights Out color paint Dim even before the
// corrector has visited them, plus :root custom properties for the static
// stylesheet to build on.
func (m *Map) Stylesheet() string {
	var b strings.Builder

	b.WriteString(":root {\n")
	for i, e := range m.entries {
		b.WriteString("\t--redim-")
		b.WriteString(varName(i))
		b.WriteString(": ")
		b.WriteString(e.Target.Hex())
		b.WriteString(";\n")
	}
	b.WriteString("}\n")

	for _, e := range m.entries {
		b.WriteString(`[style*="background-color: `)
		b.WriteString(FormatRGB(e.Source))
		b.WriteString(`"] { background-color: `)
		b.WriteString(e.Target.Hex())
		b.WriteString(" !important; }\n")
	}

	return b.String()
}

var varNames = []string{"bg", "card", "input", "border"}

func varName(i int) string {
	if i < len(varNames) {
		return varNames[i]
	}
	return "extra-" + itoa(uint8(i))
}
