// Package models defines the values that flow out of the eligibility engine:
// evaluated programs, interactions between them, and locale-enriched results.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProgramID identifies a benefit program in the catalog.
type ProgramID string

// Tier is the confidence a household matches a program. Excluded programs have
// no tier; they are dropped.
type Tier string

const (
	TierLikely   Tier = "likely"
	TierPossible Tier = "possible"
)

// Rank orders tiers for output: likely sorts before possible.
func (t Tier) Rank() int {
	if t == TierLikely {
		return 0
	}
	return 1
}

// Outcome is the three-valued result of checking one criterion.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomePass
	OutcomeFail
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown: "unknown",
	OutcomePass:    "pass",
	OutcomeFail:    "fail",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	s, ok := outcomeNames[o]
	if !ok {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(s), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for k, v := range outcomeNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("invalid outcome %q", text)
}

// CriterionResult records how one top-level criterion of a program evaluated.
type CriterionResult struct {
	ID       string  `json:"id"`
	Required bool    `json:"required"`
	Outcome  Outcome `json:"outcome"`
}

// EvaluatedProgram is a surfaced program together with the criterion results
// that produced its tier. A required criterion never has OutcomeFail here;
// such programs are excluded before an EvaluatedProgram is built.
type EvaluatedProgram struct {
	ProgramID ProgramID         `json:"program_id"`
	Criteria  []CriterionResult `json:"criteria"`
}

// Tier derives the confidence tier from the criterion results. Unknown required
// data, or a secondary criterion that explicitly fails, caps it at possible.
func (p EvaluatedProgram) Tier() Tier {
	for _, c := range p.Criteria {
		if c.Required && c.Outcome != OutcomePass {
			return TierPossible
		}
		if !c.Required && c.Outcome == OutcomeFail {
			return TierPossible
		}
	}
	return TierLikely
}

// Passed returns the ids of criteria that explicitly held.
func (p EvaluatedProgram) Passed() []string { return p.idsWith(OutcomePass) }

// Failed returns the ids of secondary criteria that explicitly failed.
func (p EvaluatedProgram) Failed() []string { return p.idsWith(OutcomeFail) }

// Unknown returns the ids of criteria whose facts were not collected.
func (p EvaluatedProgram) Unknown() []string { return p.idsWith(OutcomeUnknown) }

func (p EvaluatedProgram) idsWith(o Outcome) []string {
	out := []string{}
	for _, c := range p.Criteria {
		if c.Outcome == o {
			out = append(out, c.ID)
		}
	}
	return out
}

// MarshalJSON adds the derived tier and the explainability lists.
func (p EvaluatedProgram) MarshalJSON() ([]byte, error) {
	type plain EvaluatedProgram
	return json.Marshal(struct {
		plain
		Tier    Tier     `json:"tier"`
		Passed  []string `json:"passed"`
		Failed  []string `json:"failed"`
		Unknown []string `json:"unknown"`
	}{
		plain:   plain(p),
		Tier:    p.Tier(),
		Passed:  p.Passed(),
		Failed:  p.Failed(),
		Unknown: p.Unknown(),
	})
}

// InteractionKind classifies how two programs relate.
type InteractionKind string

const (
	InteractionPrerequisite  InteractionKind = "prerequisite"
	InteractionConflict      InteractionKind = "conflict"
	InteractionAmplifier     InteractionKind = "amplifier"
	InteractionInformational InteractionKind = "informational"
)

// IsValid reports whether k is a known interaction kind.
func (k InteractionKind) IsValid() bool {
	switch k {
	case InteractionPrerequisite, InteractionConflict, InteractionAmplifier, InteractionInformational:
		return true
	}
	return false
}

// BenefitInteraction relates an unordered pair of surfaced programs.
// ProgramA < ProgramB always; DeclaredBy keeps the direction of the catalog hook.
type BenefitInteraction struct {
	ProgramA    ProgramID       `json:"program_a"`
	ProgramB    ProgramID       `json:"program_b"`
	Kind        InteractionKind `json:"kind"`
	Explanation string          `json:"explanation"`
	DeclaredBy  ProgramID       `json:"declared_by"`
}

// Involves reports whether id is one side of the pair.
func (i BenefitInteraction) Involves(id ProgramID) bool {
	return i.ProgramA == id || i.ProgramB == id
}

// ScreeningResults is the persisted outcome of one screening.
type ScreeningResults struct {
	Programs       []EvaluatedProgram `json:"programs"`
	CatalogVersion string             `json:"catalog_version"`
	CompletedAt    time.Time          `json:"completed_at"`
}

// ProgramContent is the locale-rendered display text for a program.
type ProgramContent struct {
	Name       string `json:"name"`
	Summary    string `json:"summary,omitempty"`
	HowToApply string `json:"how_to_apply,omitempty"`
	URL        string `json:"url,omitempty"`
	TierLabel  string `json:"tier_label"`
}

// EnrichedResult is one program ready for display or report generation.
type EnrichedResult struct {
	Program         EvaluatedProgram     `json:"program"`
	Tier            Tier                 `json:"tier"`
	Content         ProgramContent       `json:"content"`
	ContentLocale   string               `json:"content_locale"`
	ContentFallback bool                 `json:"content_fallback"`
	Interactions    []BenefitInteraction `json:"interactions"`
}
