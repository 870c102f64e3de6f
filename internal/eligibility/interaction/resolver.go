// Package interaction derives the relationships between surfaced programs from
// the hooks their catalog definitions declare.
package interaction

import (
	"log/slog"
	"slices"
	"strings"

	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/models"
)

// Resolver turns catalog interaction hooks into canonical BenefitInteractions.
type Resolver struct {
	logger  *slog.Logger
	onIssue func(catalog.IssueKind)
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithIssueCounter registers a callback invoked for every integrity issue hit
// during resolution, typically a metrics counter.
func WithIssueCounter(fn func(catalog.IssueKind)) Option {
	return func(r *Resolver) {
		r.onIssue = fn
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one interaction per related pair of surfaced programs,
// sorted by (ProgramA, ProgramB). Excluded programs take no part. Hooks are
// visited in catalog order so the first declaration of a pair wins; hooks with
// integrity problems are logged and skipped.
func (r *Resolver) Resolve(cat *catalog.Catalog, surfaced []models.EvaluatedProgram) []models.BenefitInteraction {
	present := make(map[models.ProgramID]bool, len(surfaced))
	ordered := make([]models.ProgramID, 0, len(surfaced))
	for _, ep := range surfaced {
		if !present[ep.ProgramID] {
			present[ep.ProgramID] = true
			ordered = append(ordered, ep.ProgramID)
		}
	}
	slices.SortFunc(ordered, func(a, b models.ProgramID) int {
		return cat.Index(a) - cat.Index(b)
	})

	seen := map[[2]models.ProgramID]int{}
	out := []models.BenefitInteraction{}
	for _, id := range ordered {
		source, err := cat.Lookup(id)
		if err != nil {
			r.report(catalog.Issue{Kind: catalog.IssueUnknownProgram, Program: id})
			continue
		}
		for _, hook := range source.Interactions {
			if hook.Target == source.ID {
				r.report(catalog.Issue{Kind: catalog.IssueSelfHook, Program: source.ID, Target: hook.Target})
				continue
			}
			target, err := cat.Lookup(hook.Target)
			if err != nil {
				r.report(catalog.Issue{Kind: catalog.IssueDanglingHook, Program: source.ID, Target: hook.Target})
				continue
			}
			if !present[target.ID] {
				continue
			}

			pair := catalog.PairKey(source.ID, target.ID)
			if i, dup := seen[pair]; dup {
				if out[i].Kind != hook.Kind {
					r.report(catalog.Issue{Kind: catalog.IssueConflictingHook, Program: source.ID, Target: target.ID})
				}
				continue
			}

			explanation, err := hook.Explain(source.Name, target.Name)
			if err != nil {
				r.logger.Warn("interaction explanation failed to render",
					"program", source.ID,
					"target", target.ID,
					"error", err,
				)
			}
			seen[pair] = len(out)
			out = append(out, models.BenefitInteraction{
				ProgramA:    pair[0],
				ProgramB:    pair[1],
				Kind:        hook.Kind,
				Explanation: explanation,
				DeclaredBy:  source.ID,
			})
		}
	}

	slices.SortFunc(out, func(a, b models.BenefitInteraction) int {
		if c := strings.Compare(string(a.ProgramA), string(b.ProgramA)); c != 0 {
			return c
		}
		return strings.Compare(string(a.ProgramB), string(b.ProgramB))
	})
	return out
}

func (r *Resolver) report(issue catalog.Issue) {
	err := &catalog.IntegrityError{Issue: issue}
	r.logger.Warn("skipping interaction hook",
		"issue", string(issue.Kind),
		"program", issue.Program,
		"target", issue.Target,
		"error", err,
	)
	if r.onIssue != nil {
		r.onIssue(issue.Kind)
	}
}
