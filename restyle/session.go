package restyle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"github.com/hazyhaar/redim/palette"
	"github.com/hazyhaar/redim/restyle/internal/corrector"
	"github.com/hazyhaar/redim/restyle/internal/observer"
	"github.com/hazyhaar/redim/restyle/internal/stylesheet"
)

// candidateSelector matches elements whose inline style mentions a
// background property. Over-matching is fine, the corrector rejects
// non-palette values.
const candidateSelector = `[style*="background"]`

// Surface is the page-side machinery the restyler drives: stylesheet
// injection, mutation observation, and full-page correction passes.
type Surface interface {
	EnsureStylesheets() error
	RemoveStylesheets() error
	StartObserving(ctx context.Context) error
	StopObserving()
	// ScanAll corrects every current candidate element, returning the
	// number of rewrites.
	ScanAll(ctx context.Context) (int, error)
	// RevertAll restores every corrected element, returning the number of
	// restorations.
	RevertAll(ctx context.Context) (int, error)
}

// PageSurfaceConfig wires a Surface over a live page.
type PageSurfaceConfig struct {
	Page    *rod.Page
	Palette *palette.Map
	// Debounce window for mutation batching. Zero means the default.
	Window    time.Duration
	MaxBuffer int
	Logger    *slog.Logger
}

// PageSurface is the CDP-backed Surface: a corrector session plus a
// mutation observer feeding it settled batches.
type PageSurface struct {
	sess *cdpSession
	obs  *observer.Observer
}

// NewPageSurface builds the surface for one page.
func NewPageSurface(cfg PageSurfaceConfig) *PageSurface {
	if cfg.Palette == nil {
		cfg.Palette = palette.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sess := &cdpSession{
		page:   cfg.Page,
		pal:    cfg.Palette,
		corr:   corrector.New(cfg.Palette, cfg.Logger),
		logger: cfg.Logger,
	}
	obs := observer.New(observer.Config{
		Page:      cfg.Page,
		Applier:   sess,
		Window:    cfg.Window,
		MaxBuffer: cfg.MaxBuffer,
		Logger:    cfg.Logger,
	})
	return &PageSurface{sess: sess, obs: obs}
}

func (p *PageSurface) EnsureStylesheets() error { return p.sess.ensureStylesheets() }

func (p *PageSurface) RemoveStylesheets() error { return p.sess.removeStylesheets() }

func (p *PageSurface) StartObserving(ctx context.Context) error { return p.obs.Start(ctx) }

func (p *PageSurface) StopObserving() { p.obs.Stop() }

func (p *PageSurface) ScanAll(ctx context.Context) (int, error) { return p.sess.scanAll(ctx) }

func (p *PageSurface) RevertAll(ctx context.Context) (int, error) { return p.sess.revertAll(ctx) }

// cdpSession runs correction passes against a live page. It is the
// observer's Applier.
type cdpSession struct {
	page   *rod.Page
	pal    *palette.Map
	corr   *corrector.Corrector
	logger *slog.Logger
}

// Apply resolves a settled batch to live elements and corrects them. A
// target whose node left the DOM since the batch settled is skipped; the
// next batch or reset will cover whatever replaced it.
func (s *cdpSession) Apply(ctx context.Context, targets []observer.Target) {
	passID := uuid.NewString()
	page := s.page.Context(ctx)

	var els []corrector.Element
	for _, t := range targets {
		el, err := page.Sleeper(rod.NotFoundSleeper).ElementX(t.XPath)
		if err != nil {
			s.logger.Debug("restyle: target gone", "pass", passID, "xpath", t.XPath)
			continue
		}
		els = appendElement(els, el, s.logger)

		if t.Subtree {
			kids, err := el.Elements(candidateSelector)
			if err != nil {
				s.logger.Debug("restyle: subtree query failed", "pass", passID, "error", err)
				continue
			}
			for _, kid := range kids {
				els = appendElement(els, kid, s.logger)
			}
		}
	}

	n := s.corr.CorrectAll(els)
	s.logger.Debug("restyle: pass done",
		"pass", passID, "targets", len(targets), "elements", len(els), "corrected", n)
}

// Reset re-establishes everything after a document replacement.
func (s *cdpSession) Reset(ctx context.Context) {
	if err := s.ensureStylesheets(); err != nil {
		s.logger.Error("restyle: re-inject stylesheets failed", "error", err)
	}
	if n, err := s.scanAll(ctx); err != nil {
		s.logger.Error("restyle: rescan failed", "error", err)
	} else {
		s.logger.Info("restyle: document reset handled", "corrected", n)
	}
}

func (s *cdpSession) ensureStylesheets() error {
	if err := stylesheet.Ensure(s.page, stylesheet.BaseID, stylesheet.Base()); err != nil {
		return err
	}
	if err := stylesheet.Ensure(s.page, stylesheet.DynamicID, s.pal.Stylesheet()); err != nil {
		// Keep all-or-nothing: a half-injected theme looks worse than none.
		if rmErr := stylesheet.Remove(s.page, stylesheet.BaseID); rmErr != nil {
			s.logger.Warn("restyle: rollback base stylesheet failed", "error", rmErr)
		}
		return err
	}
	return nil
}

func (s *cdpSession) removeStylesheets() error {
	errBase := stylesheet.Remove(s.page, stylesheet.BaseID)
	errDyn := stylesheet.Remove(s.page, stylesheet.DynamicID)
	if errBase != nil {
		return errBase
	}
	return errDyn
}

func (s *cdpSession) scanAll(ctx context.Context) (int, error) {
	els, err := s.page.Context(ctx).Elements(candidateSelector)
	if err != nil {
		return 0, fmt.Errorf("restyle: scan candidates: %w", err)
	}
	wrapped := make([]corrector.Element, 0, len(els))
	for _, el := range els {
		wrapped = appendElement(wrapped, el, s.logger)
	}
	return s.corr.CorrectAll(wrapped), nil
}

func (s *cdpSession) revertAll(ctx context.Context) (int, error) {
	els, err := s.page.Context(ctx).Elements("[" + corrector.RecordAttr + "]")
	if err != nil {
		return 0, fmt.Errorf("restyle: find corrected elements: %w", err)
	}
	wrapped := make([]corrector.Element, 0, len(els))
	for _, el := range els {
		wrapped = appendElement(wrapped, el, s.logger)
	}
	return s.corr.RevertAll(wrapped), nil
}

func appendElement(els []corrector.Element, el *rod.Element, logger *slog.Logger) []corrector.Element {
	wrapped, err := corrector.FromRod(el)
	if err != nil {
		logger.Debug("restyle: wrap element failed", "error", err)
		return els
	}
	return append(els, wrapped)
}
