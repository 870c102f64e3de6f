package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emodels "benefind/internal/eligibility/models"
	"benefind/internal/eligibility/facts"
	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
)

func results() emodels.ScreeningResults {
	return emodels.ScreeningResults{
		CatalogVersion: "v1",
		CompletedAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Programs: []emodels.EvaluatedProgram{
			{ProgramID: "snap", Criteria: []emodels.CriterionResult{{ID: "income", Required: true, Outcome: emodels.OutcomePass}}},
			{ProgramID: "ssi", Criteria: []emodels.CriterionResult{{ID: "income", Required: true, Outcome: emodels.OutcomeUnknown}}},
		},
	}
}

func TestNewScreeningInvariants(t *testing.T) {
	owner := SessionOwner(id.SessionID(uuid.New()))
	now := time.Now()

	_, err := NewScreening(id.ScreeningID{}, owner, facts.RawIntake{}, results(), "en", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewScreening(id.NewScreeningID(), Owner{}, facts.RawIntake{}, results(), "en", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewScreening(id.NewScreeningID(), owner, facts.RawIntake{}, emodels.ScreeningResults{}, "en", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	s, err := NewScreening(id.NewScreeningID(), owner, facts.RawIntake{State: "TX"}, results(), "es", now)
	require.NoError(t, err)
	assert.Equal(t, []emodels.ProgramID{"snap", "ssi"}, s.ProgramIDs())
	assert.Equal(t, []ProgramTier{
		{ProgramID: "snap", Tier: emodels.TierLikely},
		{ProgramID: "ssi", Tier: emodels.TierPossible},
	}, s.Tiers())
}

func TestOwnerString(t *testing.T) {
	u := uuid.New()
	owner := UserOwner(id.UserID(u))
	assert.Equal(t, "user:"+u.String(), owner.String())

	back, err := ParseOwner(owner.String())
	require.NoError(t, err)
	assert.Equal(t, owner, back)

	for _, bad := range []string{"", "user", "robot:" + u.String(), "session:nope"} {
		_, err := ParseOwner(bad)
		assert.Error(t, err, bad)
	}
	assert.True(t, Owner{}.IsZero())
}

func TestCompletedEventShape(t *testing.T) {
	s, err := NewScreening(id.NewScreeningID(), SessionOwner(id.SessionID(uuid.New())), facts.RawIntake{}, results(), "en", time.Now())
	require.NoError(t, err)

	ev := NewCompletedEvent(s, nil)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, s.ID.String(), decoded["screening_id"])
	assert.Equal(t, "v1", decoded["catalog_version"])
	assert.Equal(t, []any{}, decoded["interactions"])
	assert.Len(t, decoded["programs"], 2)
}
