//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	emodels "benefind/internal/eligibility/models"
	"benefind/internal/eligibility/facts"
	"benefind/internal/screening/models"
	"benefind/internal/screening/store"
	id "benefind/pkg/domain"
	"benefind/pkg/platform/sentinel"
	"benefind/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "screenings"))
}

func makeScreening(owner models.Owner, createdAt time.Time) *models.Screening {
	size, age := 3, 7
	income := decimal.RequireFromString("1800")
	diagnosis := true
	sc, err := models.NewScreening(id.NewScreeningID(), owner, facts.RawIntake{
		State:                  "TX",
		HouseholdSize:          &size,
		MonthlyIncome:          &income,
		Age:                    &age,
		HasDisabilityDiagnosis: &diagnosis,
		ReceivesBenefits:       map[string]bool{"snap": true},
	}, emodels.ScreeningResults{
		CatalogVersion: "2024.3",
		CompletedAt:    createdAt,
		Programs: []emodels.EvaluatedProgram{
			{ProgramID: "ssi", Criteria: []emodels.CriterionResult{
				{ID: "disability_or_age", Required: true, Outcome: emodels.OutcomePass},
				{ID: "income", Required: true, Outcome: emodels.OutcomePass},
			}},
			{ProgramID: "medicaid", Criteria: []emodels.CriterionResult{
				{ID: "income", Required: true, Outcome: emodels.OutcomePass},
				{ID: "uninsured", Required: false, Outcome: emodels.OutcomeFail},
			}},
		},
	}, "es", createdAt)
	if err != nil {
		panic(err)
	}
	return sc
}

func (s *PostgresStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	owner := models.SessionOwner(id.SessionID(uuid.New()))
	sc := makeScreening(owner, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.Save(ctx, sc))

	got, err := s.store.FindByID(ctx, sc.ID)
	s.Require().NoError(err)
	s.Equal(sc.ID, got.ID)
	s.Equal(owner, got.Owner)
	s.Equal("es", got.Locale)
	s.True(sc.CreatedAt.Equal(got.CreatedAt))
	s.Equal("TX", got.Intake.State)
	s.True(sc.Intake.MonthlyIncome.Equal(*got.Intake.MonthlyIncome))
	s.Equal(map[string]bool{"snap": true}, got.Intake.ReceivesBenefits)
	s.Equal(sc.Results.Programs, got.Results.Programs)
	s.Equal(emodels.TierPossible, got.Results.Programs[1].Tier())

	_, err = s.store.FindByID(ctx, id.NewScreeningID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLatestAndListNewestFirst() {
	ctx := context.Background()
	owner := models.UserOwner(id.UserID(uuid.New()))
	base := time.Now().UTC().Truncate(time.Second)

	first := makeScreening(owner, base)
	second := makeScreening(owner, base.Add(time.Minute))
	third := makeScreening(owner, base.Add(time.Minute))
	for _, sc := range []*models.Screening{first, second, third} {
		s.Require().NoError(s.store.Save(ctx, sc))
	}
	s.Require().NoError(s.store.Save(ctx, makeScreening(models.SessionOwner(id.SessionID(uuid.New())), base.Add(time.Hour))))

	latest, err := s.store.Latest(ctx, owner)
	s.Require().NoError(err)
	s.Equal(third.ID, latest.ID)

	list, err := s.store.ListByOwner(ctx, owner, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]id.ScreeningID{third.ID, second.ID, first.ID}, []id.ScreeningID{list[0].ID, list[1].ID, list[2].ID})

	limited, err := s.store.ListByOwner(ctx, owner, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)

	_, err = s.store.Latest(ctx, models.SessionOwner(id.SessionID(uuid.New())))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentSaveIsIdempotent() {
	ctx := context.Background()
	sc := makeScreening(models.SessionOwner(id.SessionID(uuid.New())), time.Now().UTC())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Save(ctx, sc))
		}()
	}
	wg.Wait()

	list, err := s.store.ListByOwner(ctx, sc.Owner, 10)
	s.Require().NoError(err)
	s.Len(list, 1)
}
