package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	emodels "benefind/internal/eligibility/models"
	"benefind/internal/eligibility/facts"
	"benefind/internal/screening/models"
	id "benefind/pkg/domain"
	"benefind/pkg/platform/sentinel"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newScreening(owner models.Owner, createdAt time.Time) *models.Screening {
	size, age := 2, 30
	income := decimal.RequireFromString("1250")
	sc, err := models.NewScreening(id.NewScreeningID(), owner, facts.RawIntake{
		State:         "NY",
		HouseholdSize: &size,
		MonthlyIncome: &income,
		Age:           &age,
	}, emodels.ScreeningResults{
		CatalogVersion: "2024.3",
		CompletedAt:    createdAt,
		Programs: []emodels.EvaluatedProgram{
			{ProgramID: "snap", Criteria: []emodels.CriterionResult{{ID: "income", Required: true, Outcome: emodels.OutcomePass}}},
			{ProgramID: "lifeline", Criteria: []emodels.CriterionResult{{ID: "qualifies", Required: true, Outcome: emodels.OutcomeUnknown}}},
		},
	}, "en", createdAt)
	if err != nil {
		panic(err)
	}
	return sc
}

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	owner models.Owner
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.owner = models.SessionOwner(id.SessionID(uuid.New()))
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	sc := newScreening(s.owner, baseTime)
	s.Require().NoError(s.store.Save(s.ctx, sc))

	got, err := s.store.FindByID(s.ctx, sc.ID)
	s.Require().NoError(err)
	s.Equal(sc, got)
	s.NotSame(sc, got)

	_, err = s.store.FindByID(s.ctx, id.NewScreeningID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestLatestAndList() {
	_, err := s.store.Latest(s.ctx, s.owner)
	s.ErrorIs(err, sentinel.ErrNotFound)

	older := newScreening(s.owner, baseTime)
	newer := newScreening(s.owner, baseTime.Add(time.Hour))
	tie := newScreening(s.owner, baseTime.Add(time.Hour))
	other := newScreening(models.UserOwner(id.UserID(uuid.New())), baseTime.Add(2*time.Hour))

	// Saved out of creation order on purpose.
	for _, sc := range []*models.Screening{newer, older, tie, other} {
		s.Require().NoError(s.store.Save(s.ctx, sc))
	}

	latest, err := s.store.Latest(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(tie.ID, latest.ID)

	list, err := s.store.ListByOwner(s.ctx, s.owner, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]id.ScreeningID{tie.ID, newer.ID, older.ID}, []id.ScreeningID{list[0].ID, list[1].ID, list[2].ID})

	limited, err := s.store.ListByOwner(s.ctx, s.owner, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *InMemoryStoreSuite) TestSaveIsIdempotent() {
	sc := newScreening(s.owner, baseTime)
	s.Require().NoError(s.store.Save(s.ctx, sc))
	s.Require().NoError(s.store.Save(s.ctx, sc))

	list, err := s.store.ListByOwner(s.ctx, s.owner, 10)
	s.Require().NoError(err)
	s.Len(list, 1)
}
