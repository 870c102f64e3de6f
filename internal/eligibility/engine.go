// Package eligibility is the screening engine: it evaluates household facts
// against the active program catalog, resolves interactions between the
// surfaced programs and renders them for a locale. It performs no I/O.
package eligibility

import (
	"log/slog"
	"time"

	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/content"
	"benefind/internal/eligibility/enrich"
	"benefind/internal/eligibility/facts"
	"benefind/internal/eligibility/interaction"
	"benefind/internal/eligibility/models"
	"benefind/internal/eligibility/rules"
)

// Outcome is everything one screening produces.
type Outcome struct {
	Results      models.ScreeningResults
	Interactions []models.BenefitInteraction
	Enriched     []models.EnrichedResult
	Locale       string
}

// Report is a stored screening re-rendered for the report collaborator.
type Report struct {
	CatalogVersion string                      `json:"catalog_version"`
	Locale         string                      `json:"locale"`
	Results        []models.EnrichedResult     `json:"results"`
	Interactions   []models.BenefitInteraction `json:"interactions"`
}

// ProgramView is one catalog program with localized content, for lookups
// outside a screening.
type ProgramView struct {
	ID              models.ProgramID      `json:"id"`
	Category        string                `json:"category,omitempty"`
	Agency          string                `json:"agency,omitempty"`
	Nationwide      bool                  `json:"nationwide"`
	States          []facts.StateCode     `json:"states,omitempty"`
	Content         models.ProgramContent `json:"content"`
	ContentLocale   string                `json:"content_locale"`
	ContentFallback bool                  `json:"content_fallback"`
	Related         []RelatedProgram      `json:"related"`
}

// RelatedProgram is an interaction hook declared by a program.
type RelatedProgram struct {
	ProgramID models.ProgramID       `json:"program_id"`
	Kind      models.InteractionKind `json:"kind"`
}

// Engine runs screenings against whatever catalog the registry currently
// holds. Each call reads the registry once, so a concurrent reload never mixes
// two catalogs in one result.
type Engine struct {
	registry *catalog.Registry
	content  *content.Bundle
	resolver *interaction.Resolver
	enricher *enrich.Enricher
	logger   *slog.Logger
	now      func() time.Time
	onIssue  func(catalog.IssueKind)
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIssueCounter is called for every catalog integrity issue, at load and
// during resolution.
func WithIssueCounter(fn func(catalog.IssueKind)) Option {
	return func(e *Engine) {
		e.onIssue = fn
	}
}

func New(registry *catalog.Registry, bundle *content.Bundle, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		content:  bundle,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	resolverOpts := []interaction.Option{interaction.WithLogger(e.logger)}
	if e.onIssue != nil {
		resolverOpts = append(resolverOpts, interaction.WithIssueCounter(e.onIssue))
	}
	e.resolver = interaction.New(resolverOpts...)
	e.enricher = enrich.New(bundle, enrich.WithLogger(e.logger))

	e.logIssues(registry.Current())
	return e
}

// CatalogVersion returns the version of the active catalog.
func (e *Engine) CatalogVersion() string {
	return e.registry.Current().Version()
}

// Screen evaluates facts against the programs offered in their state.
func (e *Engine) Screen(f facts.HouseholdFacts, locale string) Outcome {
	return e.ScreenAt(f, locale, e.now())
}

// ScreenAt is Screen with the completion time supplied by the caller.
func (e *Engine) ScreenAt(f facts.HouseholdFacts, locale string, at time.Time) Outcome {
	cat := e.registry.Current()
	locale = content.NormalizeLocale(locale)

	evaluated := rules.NewEvaluator(cat.Poverty()).EvaluateAll(f, cat.ListForState(f.State()))
	interactions := e.resolver.Resolve(cat, evaluated)

	return Outcome{
		Results: models.ScreeningResults{
			Programs:       evaluated,
			CatalogVersion: cat.Version(),
			CompletedAt:    at.UTC(),
		},
		Interactions: interactions,
		Enriched:     e.enricher.Enrich(cat, evaluated, interactions, locale),
		Locale:       locale,
	}
}

// Render re-resolves and re-enriches previously evaluated programs. Tiers come
// from the stored criterion results; only interactions and content follow the
// active catalog.
func (e *Engine) Render(programs []models.EvaluatedProgram, locale string) Report {
	cat := e.registry.Current()
	locale = content.NormalizeLocale(locale)
	interactions := e.resolver.Resolve(cat, programs)

	return Report{
		CatalogVersion: cat.Version(),
		Locale:         locale,
		Results:        e.enricher.Enrich(cat, programs, interactions, locale),
		Interactions:   interactions,
	}
}

// Program describes one catalog program in locale. The error wraps
// sentinel.ErrNotFound for unknown ids.
func (e *Engine) Program(id models.ProgramID, locale string) (ProgramView, error) {
	cat := e.registry.Current()
	p, err := cat.Lookup(id)
	if err != nil {
		return ProgramView{}, err
	}
	locale = content.NormalizeLocale(locale)
	text, resolved, fallback := e.enricher.Text(cat, id, locale)

	related := make([]RelatedProgram, 0, len(p.Interactions))
	for _, h := range p.Interactions {
		if cat.Has(h.Target) && h.Target != p.ID {
			related = append(related, RelatedProgram{ProgramID: h.Target, Kind: h.Kind})
		}
	}

	return ProgramView{
		ID:         p.ID,
		Category:   p.Category,
		Agency:     p.Agency,
		Nationwide: p.Jurisdiction.Nationwide,
		States:     p.Jurisdiction.States,
		Content: models.ProgramContent{
			Name:       text.Name,
			Summary:    text.Summary,
			HowToApply: text.HowToApply,
			URL:        text.URL,
		},
		ContentLocale:   resolved,
		ContentFallback: fallback,
		Related:         related,
	}, nil
}

// Reload loads a new catalog and swaps it in. The active catalog is kept when
// loading fails.
func (e *Engine) Reload(load catalog.Loader) error {
	previous := e.registry.Current().Version()
	c, err := e.registry.Reload(load)
	if err != nil {
		e.logger.Error("catalog reload failed", "error", err, "catalog_version", previous)
		return err
	}
	e.logger.Info("catalog reloaded", "previous_version", previous, "catalog_version", c.Version())
	e.logIssues(c)
	return nil
}

func (e *Engine) logIssues(c *catalog.Catalog) {
	for _, issue := range c.Issues() {
		e.logger.Warn("catalog integrity issue",
			"catalog_version", c.Version(),
			"issue", string(issue.Kind),
			"detail", issue.String(),
		)
		if e.onIssue != nil {
			e.onIssue(issue.Kind)
		}
	}
}
