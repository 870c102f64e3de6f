package facts

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Key names a fact that catalog criteria can reference.
type Key string

const (
	KeyState                  Key = "state"
	KeyHouseholdSize          Key = "household_size"
	KeyMonthlyIncome          Key = "monthly_income"
	KeyAge                    Key = "age"
	KeyHasDisabilityDiagnosis Key = "has_disability_diagnosis"
	KeyHasInsurance           Key = "has_insurance"
	KeyInsuranceType          Key = "insurance_type"

	// receivesPrefix + Benefit, e.g. "receives_ssi".
	receivesPrefix = "receives_"
)

// KeyType is the value shape a fact produces.
type KeyType int

const (
	TypeUnsupported KeyType = iota
	TypeNumber
	TypeBool
	TypeText
)

// ReceivesKey returns the fact key for a received benefit.
func ReceivesKey(b Benefit) Key {
	return Key(receivesPrefix + string(b))
}

// TypeOf reports the value shape of k, or TypeUnsupported when the intake schema
// has no such fact.
func TypeOf(k Key) KeyType {
	switch k {
	case KeyHouseholdSize, KeyMonthlyIncome, KeyAge:
		return TypeNumber
	case KeyHasDisabilityDiagnosis, KeyHasInsurance:
		return TypeBool
	case KeyState, KeyInsuranceType:
		return TypeText
	}
	if b, ok := strings.CutPrefix(string(k), receivesPrefix); ok && validBenefits[Benefit(b)] {
		return TypeBool
	}
	return TypeUnsupported
}

// Number looks up a numeric fact. The second result is false when the fact was
// not collected or k is not numeric.
func (f HouseholdFacts) Number(k Key) (decimal.Decimal, bool) {
	switch k {
	case KeyHouseholdSize:
		return decimal.NewFromInt(int64(f.householdSize)), f.householdSize > 0
	case KeyMonthlyIncome:
		return f.monthlyIncome, true
	case KeyAge:
		return decimal.NewFromInt(int64(f.age)), true
	}
	return decimal.Zero, false
}

// Bool looks up a boolean fact.
func (f HouseholdFacts) Bool(k Key) (bool, bool) {
	switch k {
	case KeyHasDisabilityDiagnosis:
		return f.HasDisabilityDiagnosis()
	case KeyHasInsurance:
		return f.HasInsurance()
	}
	if b, ok := strings.CutPrefix(string(k), receivesPrefix); ok {
		return f.Receives(Benefit(b))
	}
	return false, false
}

// FoldText returns the case fold applied to values of the textual fact k:
// state codes are upper case, everything else lower case.
func FoldText(k Key) func(string) string {
	if k == KeyState {
		return strings.ToUpper
	}
	return strings.ToLower
}

// Text looks up a textual fact.
func (f HouseholdFacts) Text(k Key) (string, bool) {
	switch k {
	case KeyState:
		return string(f.state), f.state != ""
	case KeyInsuranceType:
		t, ok := f.InsuranceType()
		return string(t), ok
	}
	return "", false
}
