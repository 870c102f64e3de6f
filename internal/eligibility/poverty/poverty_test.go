package poverty

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefind/internal/eligibility/facts"
)

func TestAnnual(t *testing.T) {
	table := Guidelines2024()

	tests := []struct {
		name     string
		state    string
		size     int
		expected int64
	}{
		{name: "single person contiguous", state: "TX", size: 1, expected: 15060},
		{name: "family of three", state: "TX", size: 3, expected: 25820},
		{name: "family of eight", state: "NY", size: 8, expected: 52720},
		{name: "alaska", state: "AK", size: 2, expected: 25540},
		{name: "hawaii", state: "HI", size: 4, expected: 35880},
		{name: "size below one is clamped", state: "TX", size: 0, expected: 15060},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Annual(stateCode(tt.state), tt.size)
			assert.True(t, decimal.NewFromInt(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestMonthlyThreshold(t *testing.T) {
	table := Guidelines2024()

	// 25820 * 250% / 12 = 5379.1666... -> 5379.16
	got := table.MonthlyThreshold("TX", 3, decimal.NewFromInt(250))
	assert.Equal(t, "5379.16", got.StringFixed(2))

	// 15060 / 12 = 1255 exactly
	got = table.MonthlyThreshold("TX", 1, decimal.NewFromInt(100))
	assert.Equal(t, "1255.00", got.StringFixed(2))

	// Fractional percentages are supported.
	got = table.MonthlyThreshold("TX", 1, decimal.RequireFromString("138"))
	assert.Equal(t, "1731.90", got.StringFixed(2))
}

func TestMonthlyThresholdNeverExceedsExactLine(t *testing.T) {
	table := Guidelines2024()
	twelve := decimal.NewFromInt(12)
	for _, state := range []facts.StateCode{"TX", "AK", "HI"} {
		for size := 1; size <= 8; size++ {
			for _, pct := range []string{"100", "130", "133", "138", "185", "200", "250", "300"} {
				percent := decimal.RequireFromString(pct)
				got := table.MonthlyThreshold(state, size, percent)
				exactAnnual := table.Annual(state, size).Mul(percent).Div(decimal.NewFromInt(100))
				assert.True(t, got.Mul(twelve).LessThanOrEqual(exactAnnual),
					"%s size %d at %s%%: %s", state, size, pct, got)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Guidelines2024().Validate())

	bad := Guidelines2024()
	bad.Default.Base = decimal.Zero
	assert.Error(t, bad.Validate())

	bad = Guidelines2024()
	bad.Regions["AK"] = Guideline{Base: decimal.NewFromInt(1), PerAdditional: decimal.NewFromInt(-1)}
	assert.Error(t, bad.Validate())
}

func stateCode(s string) facts.StateCode { return facts.StateCode(s) }
