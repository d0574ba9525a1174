package restyle

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/redim/palette"
	"github.com/hazyhaar/redim/restyle/internal/corrector"
)

// AuditResult summarizes an offline correction pass.
type AuditResult struct {
	Candidates int
	Corrected  int
}

// AuditHTML runs the corrector over a saved HTML document and renders the
// corrected markup to w. Lets a palette change be checked against a page
// snapshot without driving a browser.
func AuditHTML(r io.Reader, w io.Writer, pal *palette.Map, logger *slog.Logger) (AuditResult, error) {
	if pal == nil {
		pal = palette.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	tree, err := corrector.Parse(r)
	if err != nil {
		return AuditResult{}, fmt.Errorf("restyle: parse document: %w", err)
	}

	corr := corrector.New(pal, logger)
	candidates := tree.CandidateElements()
	n := corr.CorrectAll(candidates)

	if err := tree.Render(w); err != nil {
		return AuditResult{}, fmt.Errorf("restyle: render document: %w", err)
	}
	return AuditResult{Candidates: len(candidates), Corrected: n}, nil
}
