// Package poverty holds Federal Poverty Level guideline tables and the threshold
// math used by percentage-of-FPL eligibility criteria.
package poverty

import (
	"fmt"

	"github.com/shopspring/decimal"

	"benefind/internal/eligibility/facts"
)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// Guideline is one region's annual poverty line: Base for a household of one,
// plus PerAdditional for each further member.
type Guideline struct {
	Base          decimal.Decimal
	PerAdditional decimal.Decimal
}

// Table is a year's guidelines. Regions override Default for specific states
// (Alaska and Hawaii publish their own figures).
type Table struct {
	Year    int
	Default Guideline
	Regions map[facts.StateCode]Guideline
}

// Guidelines2024 are the HHS poverty guidelines published for 2024.
func Guidelines2024() Table {
	return Table{
		Year: 2024,
		Default: Guideline{
			Base:          decimal.NewFromInt(15060),
			PerAdditional: decimal.NewFromInt(5380),
		},
		Regions: map[facts.StateCode]Guideline{
			"AK": {Base: decimal.NewFromInt(18810), PerAdditional: decimal.NewFromInt(6730)},
			"HI": {Base: decimal.NewFromInt(17310), PerAdditional: decimal.NewFromInt(6190)},
		},
	}
}

// Validate checks the table is usable.
func (t Table) Validate() error {
	if err := t.Default.validate("default"); err != nil {
		return err
	}
	for state, g := range t.Regions {
		if err := g.validate(string(state)); err != nil {
			return err
		}
	}
	return nil
}

func (g Guideline) validate(region string) error {
	if !g.Base.IsPositive() {
		return fmt.Errorf("poverty guideline %s: base must be positive", region)
	}
	if g.PerAdditional.IsNegative() {
		return fmt.Errorf("poverty guideline %s: per-additional amount must be >= 0", region)
	}
	return nil
}

// Annual returns the yearly poverty line for a household in state.
// Household sizes below one are treated as one.
func (t Table) Annual(state facts.StateCode, householdSize int) decimal.Decimal {
	g, ok := t.Regions[state]
	if !ok {
		g = t.Default
	}
	extra := int64(householdSize - 1)
	if extra < 0 {
		extra = 0
	}
	return g.Base.Add(g.PerAdditional.Mul(decimal.NewFromInt(extra)))
}

// MonthlyThreshold returns percent% of the annual line divided by twelve,
// rounded down to cents so it never exceeds the exact line.
func (t Table) MonthlyThreshold(state facts.StateCode, householdSize int, percent decimal.Decimal) decimal.Decimal {
	return t.Annual(state, householdSize).
		Mul(percent).
		Div(hundred).
		Div(monthsInYear).
		RoundFloor(2)
}
