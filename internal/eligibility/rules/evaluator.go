// Package rules evaluates program eligibility predicates against household
// facts using three-valued logic: a fact that was never collected is unknown,
// not false.
package rules

import (
	"slices"

	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/facts"
	"benefind/internal/eligibility/models"
	"benefind/internal/eligibility/poverty"
)

// Evaluator applies catalog criteria to facts. It is stateless apart from the
// poverty table and safe for concurrent use.
type Evaluator struct {
	poverty poverty.Table
}

// NewEvaluator returns an evaluator computing FPL thresholds from table.
func NewEvaluator(table poverty.Table) *Evaluator {
	return &Evaluator{poverty: table}
}

// Evaluate checks one program. The second result is false when the program is
// excluded: outside the household's state or with a required criterion that
// explicitly fails.
func (e *Evaluator) Evaluate(f facts.HouseholdFacts, p catalog.Program) (models.EvaluatedProgram, bool) {
	if !p.Jurisdiction.Covers(f.State()) {
		return models.EvaluatedProgram{}, false
	}

	results := make([]models.CriterionResult, 0, len(p.Required)+len(p.Secondary))
	for _, c := range p.Required {
		outcome := e.eval(f, c)
		if outcome == models.OutcomeFail {
			return models.EvaluatedProgram{}, false
		}
		results = append(results, models.CriterionResult{ID: c.ID, Required: true, Outcome: outcome})
	}
	for _, c := range p.Secondary {
		results = append(results, models.CriterionResult{ID: c.ID, Outcome: e.eval(f, c)})
	}
	return models.EvaluatedProgram{ProgramID: p.ID, Criteria: results}, true
}

// EvaluateAll evaluates programs and returns the surfaced ones, likely before
// possible, keeping the input order within a tier.
func (e *Evaluator) EvaluateAll(f facts.HouseholdFacts, programs []catalog.Program) []models.EvaluatedProgram {
	out := make([]models.EvaluatedProgram, 0, len(programs))
	for _, p := range programs {
		if ep, ok := e.Evaluate(f, p); ok {
			out = append(out, ep)
		}
	}
	slices.SortStableFunc(out, func(a, b models.EvaluatedProgram) int {
		return a.Tier().Rank() - b.Tier().Rank()
	})
	return out
}

func (e *Evaluator) eval(f facts.HouseholdFacts, c catalog.Criterion) models.Outcome {
	switch c.Kind {
	case catalog.KindCompare:
		v, ok := f.Number(c.Fact)
		if !ok {
			return models.OutcomeUnknown
		}
		return outcomeOf(compare(v.Cmp(c.Value), c.Op))

	case catalog.KindFPLPercent:
		income, ok := f.Number(facts.KeyMonthlyIncome)
		if !ok || f.HouseholdSize() < 1 {
			return models.OutcomeUnknown
		}
		threshold := e.poverty.MonthlyThreshold(f.State(), f.HouseholdSize(), c.Percent)
		return outcomeOf(income.LessThanOrEqual(threshold))

	case catalog.KindEquals:
		v, ok := f.Bool(c.Fact)
		if !ok {
			return models.OutcomeUnknown
		}
		return outcomeOf(v == c.Equals)

	case catalog.KindRange:
		v, ok := f.Number(c.Fact)
		if !ok {
			return models.OutcomeUnknown
		}
		inRange := (c.Min == nil || v.GreaterThanOrEqual(*c.Min)) &&
			(c.Max == nil || v.LessThanOrEqual(*c.Max))
		return outcomeOf(inRange)

	case catalog.KindOneOf:
		v, ok := f.Text(c.Fact)
		if !ok {
			return models.OutcomeUnknown
		}
		return outcomeOf(slices.Contains(c.Values, v))

	case catalog.KindAll:
		result := models.OutcomePass
		for _, child := range c.Children {
			switch e.eval(f, child) {
			case models.OutcomeFail:
				return models.OutcomeFail
			case models.OutcomeUnknown:
				result = models.OutcomeUnknown
			}
		}
		return result

	case catalog.KindAny:
		result := models.OutcomeFail
		for _, child := range c.Children {
			switch e.eval(f, child) {
			case models.OutcomePass:
				return models.OutcomePass
			case models.OutcomeUnknown:
				result = models.OutcomeUnknown
			}
		}
		return result

	case catalog.KindNot:
		if len(c.Children) != 1 {
			return models.OutcomeUnknown
		}
		switch e.eval(f, c.Children[0]) {
		case models.OutcomePass:
			return models.OutcomeFail
		case models.OutcomeFail:
			return models.OutcomePass
		}
		return models.OutcomeUnknown
	}
	// Catalog validation rejects unknown kinds; never guess a failure.
	return models.OutcomeUnknown
}

func compare(cmp int, op catalog.Op) bool {
	switch op {
	case catalog.OpLT:
		return cmp < 0
	case catalog.OpLTE:
		return cmp <= 0
	case catalog.OpGT:
		return cmp > 0
	case catalog.OpGTE:
		return cmp >= 0
	case catalog.OpEQ:
		return cmp == 0
	}
	return false
}

func outcomeOf(ok bool) models.Outcome {
	if ok {
		return models.OutcomePass
	}
	return models.OutcomeFail
}
