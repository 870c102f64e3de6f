// Package facts turns raw intake input into validated, immutable household facts.
package facts

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// StateCode is a two-letter US state (or DC) postal code.
type StateCode string

// InsuranceType is the kind of health coverage a household reports.
type InsuranceType string

const (
	InsuranceEmployer    InsuranceType = "employer"
	InsuranceMarketplace InsuranceType = "marketplace"
	InsuranceMedicaid    InsuranceType = "medicaid"
	InsuranceMedicare    InsuranceType = "medicare"
	InsuranceCHIP        InsuranceType = "chip"
	InsuranceMilitary    InsuranceType = "military"
	InsuranceOther       InsuranceType = "other"

	// InsuranceNone is derived when the household explicitly reports no coverage.
	// It is never accepted as input.
	InsuranceNone InsuranceType = "none"
)

var validInsuranceTypes = map[InsuranceType]bool{
	InsuranceEmployer:    true,
	InsuranceMarketplace: true,
	InsuranceMedicaid:    true,
	InsuranceMedicare:    true,
	InsuranceCHIP:        true,
	InsuranceMilitary:    true,
	InsuranceOther:       true,
}

// Benefit is a program the household may already receive.
type Benefit string

const (
	BenefitSSI      Benefit = "ssi"
	BenefitSSDI     Benefit = "ssdi"
	BenefitSNAP     Benefit = "snap"
	BenefitTANF     Benefit = "tanf"
	BenefitWIC      Benefit = "wic"
	BenefitMedicaid Benefit = "medicaid"
)

var validBenefits = map[Benefit]bool{
	BenefitSSI:      true,
	BenefitSSDI:     true,
	BenefitSNAP:     true,
	BenefitTANF:     true,
	BenefitWIC:      true,
	BenefitMedicaid: true,
}

// HouseholdFacts is produced once per screening by Normalize and never mutated.
// Optional flags distinguish "not collected" (unknown) from an explicit false.
type HouseholdFacts struct {
	state         StateCode
	householdSize int
	monthlyIncome decimal.Decimal
	age           int
	diagnosis     *bool
	hasInsurance  *bool
	insuranceType InsuranceType
	receives      map[Benefit]bool
}

func (f HouseholdFacts) State() StateCode               { return f.state }
func (f HouseholdFacts) HouseholdSize() int             { return f.householdSize }
func (f HouseholdFacts) MonthlyIncome() decimal.Decimal { return f.monthlyIncome }
func (f HouseholdFacts) Age() int                       { return f.age }

// HasDisabilityDiagnosis returns the flag and whether it was collected.
func (f HouseholdFacts) HasDisabilityDiagnosis() (bool, bool) { return deref(f.diagnosis) }

// HasInsurance returns the flag and whether it was collected.
func (f HouseholdFacts) HasInsurance() (bool, bool) { return deref(f.hasInsurance) }

// InsuranceType returns the coverage type and whether it is known.
func (f HouseholdFacts) InsuranceType() (InsuranceType, bool) {
	return f.insuranceType, f.insuranceType != ""
}

// Receives returns whether the household receives b and whether that was collected.
func (f HouseholdFacts) Receives(b Benefit) (bool, bool) {
	v, ok := f.receives[b]
	return v, ok
}

// Intake returns the normalized raw form, suitable for persistence and for
// feeding back into Normalize.
func (f HouseholdFacts) Intake() RawIntake {
	size, age := f.householdSize, f.age
	income := f.monthlyIncome
	raw := RawIntake{
		State:                  string(f.state),
		HouseholdSize:          &size,
		MonthlyIncome:          &income,
		Age:                    &age,
		HasDisabilityDiagnosis: copyBool(f.diagnosis),
		HasInsurance:           copyBool(f.hasInsurance),
	}
	if f.insuranceType != "" && f.insuranceType != InsuranceNone {
		raw.InsuranceType = string(f.insuranceType)
	}
	if len(f.receives) > 0 {
		raw.ReceivesBenefits = make(map[string]bool, len(f.receives))
		for b, v := range f.receives {
			raw.ReceivesBenefits[string(b)] = v
		}
	}
	return raw
}

// MarshalJSON encodes the facts in their intake shape.
func (f HouseholdFacts) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Intake())
}

// ReceivedBenefits lists the benefits with a collected flag, sorted.
func (f HouseholdFacts) ReceivedBenefits() []Benefit {
	out := make([]Benefit, 0, len(f.receives))
	for b := range f.receives {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func deref(b *bool) (bool, bool) {
	if b == nil {
		return false, false
	}
	return *b, true
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
