package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"benefind/internal/eligibility"
	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/content"
	"benefind/internal/eligibility/facts"
	emodels "benefind/internal/eligibility/models"
	"benefind/internal/screening/metrics"
	"benefind/internal/screening/models"
	"benefind/internal/screening/service/mocks"
	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
	"benefind/pkg/platform/circuit"
	"benefind/pkg/platform/sentinel"
	"benefind/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,LatestCache,Publisher

var requestTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *mocks.MockStore
	cache     *mocks.MockLatestCache
	publisher *mocks.MockPublisher
	metrics   *metrics.Metrics
	spans     *tracetest.SpanRecorder
	service   *Service
	owner     models.Owner
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.store = mocks.NewMockStore(ctrl)
	s.cache = mocks.NewMockLatestCache(ctrl)
	s.publisher = mocks.NewMockPublisher(ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.spans = tracetest.NewSpanRecorder()

	cat, err := catalog.LoadEmbedded()
	s.Require().NoError(err)
	bundle, err := content.LoadEmbedded()
	s.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := eligibility.New(catalog.NewRegistry(cat), bundle,
		eligibility.WithLogger(logger),
		eligibility.WithClock(func() time.Time { return requestTime }),
	)

	s.service = New(engine, s.store,
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithLatestCache(s.cache),
		WithPublisher(s.publisher),
		WithTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans)).Tracer("test")),
	)
	s.owner = models.SessionOwner(id.SessionID(uuid.New()))
	s.ctx = requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-1"), requestTime)
}

func texasIntake() facts.RawIntake {
	size, age := 3, 7
	income := decimal.RequireFromString("1800")
	diagnosis, insured := true, true
	return facts.RawIntake{
		State:                  "tx",
		HouseholdSize:          &size,
		MonthlyIncome:          &income,
		Age:                    &age,
		HasDisabilityDiagnosis: &diagnosis,
		HasInsurance:           &insured,
		InsuranceType:          "employer",
	}
}

func (s *ServiceSuite) stored(locale string) *models.Screening {
	f, err := facts.Normalize(texasIntake())
	s.Require().NoError(err)
	sc, err := models.NewScreening(id.NewScreeningID(), s.owner, f.Intake(), emodels.ScreeningResults{
		CatalogVersion: "2024.3",
		CompletedAt:    requestTime,
		Programs: []emodels.EvaluatedProgram{
			{ProgramID: "snap", Criteria: []emodels.CriterionResult{{ID: "income", Required: true, Outcome: emodels.OutcomePass}}},
			{ProgramID: "lifeline", Criteria: []emodels.CriterionResult{{ID: "qualifies", Required: true, Outcome: emodels.OutcomePass}}},
		},
	}, locale, requestTime)
	s.Require().NoError(err)
	return sc
}

func (s *ServiceSuite) TestScreen() {
	s.Run("persists, caches and publishes", func() {
		var saved *models.Screening
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, sc *models.Screening) error {
			saved = sc
			return nil
		})
		s.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
		var event models.CompletedEvent
		s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev models.CompletedEvent) error {
			event = ev
			return nil
		})

		res, err := s.service.Screen(s.ctx, s.owner, texasIntake(), "es-MX")
		s.Require().NoError(err)

		s.Same(saved, res.Screening)
		s.Equal(s.owner, res.Screening.Owner)
		s.Equal(requestTime, res.Screening.CreatedAt)
		s.Equal("es", res.Screening.Locale)
		s.Equal("TX", res.Screening.Intake.State)
		s.Equal("2024.3", res.Screening.Results.CatalogVersion)
		s.Len(res.Outcome.Enriched, 6)

		s.Equal(res.Screening.ID.String(), event.ScreeningID)
		s.Len(event.Programs, 6)
		s.Len(event.Interactions, 3)

		s.Equal(1.0, testutil.ToFloat64(s.metrics.ScreeningsTotal.WithLabelValues(metrics.OutcomeCompleted)))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProgramsSurfaced.WithLabelValues("medicaid", "possible")))
	})

	s.Run("invalid intake lists every field", func() {
		raw := texasIntake()
		raw.State = "ZZ"
		raw.HouseholdSize = nil

		_, err := s.service.Screen(s.ctx, s.owner, raw, "en")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var de *dErrors.Error
		s.Require().True(errors.As(err, &de))
		names := make([]string, 0, len(de.Fields))
		for _, f := range de.Fields {
			names = append(names, f.Name)
		}
		s.ElementsMatch([]string{"householdSize", "state"}, names)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ScreeningsTotal.WithLabelValues(metrics.OutcomeInvalid)))
	})

	s.Run("publish failure does not fail the screening", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
		s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		res, err := s.service.Screen(s.ctx, s.owner, texasIntake(), "en")
		s.Require().NoError(err)
		s.NotNil(res.Screening)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.PublishFailures))
	})

	s.Run("cache failure does not fail the screening", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
		s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Screen(s.ctx, s.owner, texasIntake(), "en")
		s.Require().NoError(err)
	})

	s.Run("save failure is internal", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		_, err := s.service.Screen(s.ctx, s.owner, texasIntake(), "en")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ScreeningsTotal.WithLabelValues(metrics.OutcomeError)))
	})

	s.Run("owner is required", func() {
		_, err := s.service.Screen(s.ctx, models.Owner{}, texasIntake(), "en")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestScreenStampsEvaluationTime() {
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).Return(nil)

	// The engine clock stays at requestTime; the request carries a later time.
	at := requestTime.Add(90 * time.Second)
	res, err := s.service.Screen(requestcontext.WithTime(s.ctx, at), s.owner, texasIntake(), "en")
	s.Require().NoError(err)

	s.Equal(at, res.Screening.CreatedAt)
	s.Equal(at, res.Screening.Results.CompletedAt)
}

func (s *ServiceSuite) TestScreenRecordsSpan() {
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().PublishCompleted(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.service.Screen(s.ctx, s.owner, texasIntake(), "en")
	s.Require().NoError(err)

	ended := s.spans.Ended()
	s.Require().Len(ended, 1)
	s.Equal("screening.screen", ended[0].Name())
	attrs := map[string]any{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	s.Equal("2024.3", attrs["catalog.version"])
	s.Equal(int64(6), attrs["programs.surfaced"])
}

func (s *ServiceSuite) TestLatest() {
	s.Run("cache hit skips the store", func() {
		want := s.stored("en")
		s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(want, nil)

		got, err := s.service.Latest(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Same(want, got)
	})

	s.Run("cache miss reads through", func() {
		want := s.stored("en")
		s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Latest(gomock.Any(), s.owner).Return(want, nil)
		s.cache.EXPECT().Put(gomock.Any(), want).Return(nil)

		got, err := s.service.Latest(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Same(want, got)
	})

	s.Run("broken cache falls back to the store", func() {
		want := s.stored("en")
		s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(nil, errors.New("timeout"))
		s.store.EXPECT().Latest(gomock.Any(), s.owner).Return(want, nil)
		s.cache.EXPECT().Put(gomock.Any(), want).Return(errors.New("timeout"))

		got, err := s.service.Latest(s.ctx, s.owner)
		s.Require().NoError(err)
		s.Same(want, got)
	})

	s.Run("no screening yet", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Latest(gomock.Any(), s.owner).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Latest(s.ctx, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCacheBreaker() {
	cat, err := catalog.LoadEmbedded()
	s.Require().NoError(err)
	bundle, err := content.LoadEmbedded()
	s.Require().NoError(err)
	now := requestTime
	breaker := circuit.New("latest-cache",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	svc := New(eligibility.New(catalog.NewRegistry(cat), bundle), s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithLatestCache(s.cache),
		WithCacheBreaker(breaker),
	)
	want := s.stored("en")

	// Get and Put both fail: two failures open the breaker.
	s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(nil, errors.New("timeout"))
	s.store.EXPECT().Latest(gomock.Any(), s.owner).Return(want, nil)
	s.cache.EXPECT().Put(gomock.Any(), want).Return(errors.New("timeout"))
	_, err = svc.Latest(s.ctx, s.owner)
	s.Require().NoError(err)
	s.True(breaker.IsOpen())

	// Open: the cache is not called at all.
	s.store.EXPECT().Latest(gomock.Any(), s.owner).Return(want, nil)
	_, err = svc.Latest(s.ctx, s.owner)
	s.Require().NoError(err)

	// After the cooldown one probe succeeds and closes the breaker.
	now = now.Add(time.Minute)
	s.cache.EXPECT().Get(gomock.Any(), s.owner).Return(want, nil)
	got, err := svc.Latest(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Same(want, got)
	s.False(breaker.IsOpen())
}

func (s *ServiceSuite) TestListLimits() {
	tests := []struct {
		requested int
		applied   int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{5, 5},
		{MaxListLimit, MaxListLimit},
		{500, MaxListLimit},
	}
	for _, tt := range tests {
		s.store.EXPECT().ListByOwner(gomock.Any(), s.owner, tt.applied).Return([]*models.Screening{}, nil)
		list, err := s.service.List(s.ctx, s.owner, tt.requested)
		s.Require().NoError(err)
		s.NotNil(list)
	}

	s.store.EXPECT().ListByOwner(gomock.Any(), s.owner, DefaultListLimit).Return(nil, errors.New("db down"))
	_, err := s.service.List(s.ctx, s.owner, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestReport() {
	s.Run("renders in the stored locale by default", func() {
		sc := s.stored("es")
		s.store.EXPECT().FindByID(gomock.Any(), sc.ID).Return(sc, nil)

		report, err := s.service.Report(s.ctx, s.owner, sc.ID, "")
		s.Require().NoError(err)
		s.Equal("es", report.Locale)
		s.Require().Len(report.Results, 2)
		s.Equal(emodels.ProgramID("snap"), report.Results[0].Program.ProgramID)
		s.Equal("Probablemente elegible", report.Results[0].Content.TierLabel)
		s.Require().Len(report.Interactions, 1)
		s.Equal(emodels.InteractionPrerequisite, report.Interactions[0].Kind)
	})

	s.Run("explicit locale wins", func() {
		sc := s.stored("es")
		s.store.EXPECT().FindByID(gomock.Any(), sc.ID).Return(sc, nil)

		report, err := s.service.Report(s.ctx, s.owner, sc.ID, "en")
		s.Require().NoError(err)
		s.Equal("en", report.Locale)
	})

	s.Run("other owners see not found", func() {
		sc := s.stored("en")
		s.store.EXPECT().FindByID(gomock.Any(), sc.ID).Return(sc, nil)

		stranger := models.UserOwner(id.UserID(uuid.New()))
		_, err := s.service.Report(s.ctx, stranger, sc.ID, "en")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing screening", func() {
		sid := id.NewScreeningID()
		s.store.EXPECT().FindByID(gomock.Any(), sid).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Report(s.ctx, s.owner, sid, "en")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestProgramDetails() {
	view, err := s.service.ProgramDetails(s.ctx, "snap", "es")
	s.Require().NoError(err)
	s.Equal("SNAP (asistencia alimentaria)", view.Content.Name)

	_, err = s.service.ProgramDetails(s.ctx, "nope", "en")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
