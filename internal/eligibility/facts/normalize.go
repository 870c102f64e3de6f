package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RawIntake is the unvalidated intake payload. Pointer fields distinguish
// "not provided" from zero values.
type RawIntake struct {
	State                  string           `json:"state"`
	HouseholdSize          *int             `json:"householdSize"`
	MonthlyIncome          *decimal.Decimal `json:"monthlyIncome"`
	Age                    *int             `json:"age"`
	HasDisabilityDiagnosis *bool            `json:"hasDisabilityDiagnosis,omitempty"`
	HasInsurance           *bool            `json:"hasInsurance,omitempty"`
	InsuranceType          string           `json:"insuranceType,omitempty"`
	ReceivesBenefits       map[string]bool  `json:"receivesBenefits,omitempty"`
}

// FieldError describes one invalid or missing intake field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid field of an intake, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return "invalid intake: " + strings.Join(parts, "; ")
}

var validStates = map[StateCode]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true,
	"DE": true, "DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true,
	"IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true,
	"NV": true, "NH": true, "NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
}

// ParseState validates a two-letter state code, trimming and upper-casing it.
func ParseState(s string) (StateCode, bool) {
	code := StateCode(strings.ToUpper(strings.TrimSpace(s)))
	return code, validStates[code]
}

// Normalize validates raw intake into HouseholdFacts. It is pure; on failure it
// returns a *ValidationError naming every offending field.
func Normalize(raw RawIntake) (HouseholdFacts, error) {
	var errs []FieldError
	add := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	var f HouseholdFacts

	switch state, ok := ParseState(raw.State); {
	case strings.TrimSpace(raw.State) == "":
		add("state", "is required")
	case !ok:
		add("state", fmt.Sprintf("%q is not a known state code", raw.State))
	default:
		f.state = state
	}

	switch {
	case raw.HouseholdSize == nil:
		add("householdSize", "is required")
	case *raw.HouseholdSize < 1:
		add("householdSize", "must be at least 1")
	default:
		f.householdSize = *raw.HouseholdSize
	}

	switch {
	case raw.MonthlyIncome == nil:
		add("monthlyIncome", "is required")
	case raw.MonthlyIncome.IsNegative():
		add("monthlyIncome", "must be >= 0")
	default:
		f.monthlyIncome = *raw.MonthlyIncome
	}

	switch {
	case raw.Age == nil:
		add("age", "is required")
	case *raw.Age < 0:
		add("age", "must be >= 0")
	default:
		f.age = *raw.Age
	}

	f.diagnosis = copyBool(raw.HasDisabilityDiagnosis)
	f.hasInsurance = copyBool(raw.HasInsurance)

	if t := strings.ToLower(strings.TrimSpace(raw.InsuranceType)); t != "" {
		switch {
		case !validInsuranceTypes[InsuranceType(t)]:
			add("insuranceType", fmt.Sprintf("%q is not a supported insurance type", raw.InsuranceType))
		case raw.HasInsurance != nil && !*raw.HasInsurance:
			add("insuranceType", "must be empty when hasInsurance is false")
		default:
			f.insuranceType = InsuranceType(t)
			if f.hasInsurance == nil {
				insured := true
				f.hasInsurance = &insured
			}
		}
	} else if raw.HasInsurance != nil && !*raw.HasInsurance {
		f.insuranceType = InsuranceNone
	}

	if len(raw.ReceivesBenefits) > 0 {
		f.receives = make(map[Benefit]bool, len(raw.ReceivesBenefits))
		names := make([]string, 0, len(raw.ReceivesBenefits))
		for name := range raw.ReceivesBenefits {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := raw.ReceivesBenefits[name]
			b := Benefit(strings.ToLower(strings.TrimSpace(name)))
			if !validBenefits[b] {
				add("receivesBenefits."+name, "is not a known benefit")
				continue
			}
			if prev, dup := f.receives[b]; dup && prev != v {
				add("receivesBenefits."+name, "conflicts with another entry for the same benefit")
				continue
			}
			f.receives[b] = v
		}
	}

	if len(errs) > 0 {
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return HouseholdFacts{}, &ValidationError{Fields: errs}
	}
	return f, nil
}
