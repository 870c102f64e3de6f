// Package enrich joins evaluated programs with locale content and the
// interactions that touch them, producing report-ready results.
package enrich

import (
	"log/slog"
	"math"
	"slices"

	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/content"
	"benefind/internal/eligibility/models"
)

type Enricher struct {
	content *content.Bundle
	logger  *slog.Logger
}

type Option func(*Enricher)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

func New(bundle *content.Bundle, opts ...Option) *Enricher {
	e := &Enricher{content: bundle, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns one result per evaluated program, likely before possible and
// in catalog order within a tier. A content gap never drops a program: text
// falls back to the default locale, then to the catalog name. Output depends
// only on its inputs.
func (e *Enricher) Enrich(
	cat *catalog.Catalog,
	evaluated []models.EvaluatedProgram,
	interactions []models.BenefitInteraction,
	locale string,
) []models.EnrichedResult {
	locale = content.NormalizeLocale(locale)

	ordered := slices.Clone(evaluated)
	position := func(id models.ProgramID) int {
		if i := cat.Index(id); i >= 0 {
			return i
		}
		return math.MaxInt
	}
	slices.SortStableFunc(ordered, func(a, b models.EvaluatedProgram) int {
		if d := a.Tier().Rank() - b.Tier().Rank(); d != 0 {
			return d
		}
		pa, pb := position(a.ProgramID), position(b.ProgramID)
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})

	out := make([]models.EnrichedResult, 0, len(ordered))
	for _, ep := range ordered {
		tier := ep.Tier()
		text, resolved, fallback := e.Text(cat, ep.ProgramID, locale)

		touching := []models.BenefitInteraction{}
		for _, in := range interactions {
			if in.Involves(ep.ProgramID) {
				touching = append(touching, in)
			}
		}

		out = append(out, models.EnrichedResult{
			Program: ep,
			Tier:    tier,
			Content: models.ProgramContent{
				Name:       text.Name,
				Summary:    text.Summary,
				HowToApply: text.HowToApply,
				URL:        text.URL,
				TierLabel:  e.content.TierLabel(resolved, tier),
			},
			ContentLocale:   resolved,
			ContentFallback: fallback,
			Interactions:    touching,
		})
	}
	return out
}

// Text resolves display text for one program: requested locale, default
// locale, then the catalog name. It returns the locale the text came from and
// whether that is a fallback. locale must already be normalized.
func (e *Enricher) Text(cat *catalog.Catalog, id models.ProgramID, locale string) (content.ProgramText, string, bool) {
	text, err := e.content.Program(locale, id)
	if err == nil {
		return text, locale, false
	}
	e.logger.Debug("program content missing", "error", err)

	if locale != content.DefaultLocale {
		text, err = e.content.Program(content.DefaultLocale, id)
		if err == nil {
			return text, content.DefaultLocale, true
		}
		e.logger.Debug("program content missing", "error", err)
	}

	name := string(id)
	if p, err := cat.Lookup(id); err == nil {
		name = p.Name
	}
	return content.ProgramText{Name: name}, content.DefaultLocale, true
}
