package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"benefind/internal/eligibility"
	"benefind/internal/eligibility/facts"
	emodels "benefind/internal/eligibility/models"
	"benefind/internal/screening/metrics"
	"benefind/internal/screening/models"
	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
	"benefind/pkg/platform/circuit"
	"benefind/pkg/platform/sentinel"
	"benefind/pkg/requestcontext"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

type Store interface {
	Save(ctx context.Context, s *models.Screening) error
	FindByID(ctx context.Context, sid id.ScreeningID) (*models.Screening, error)
	Latest(ctx context.Context, owner models.Owner) (*models.Screening, error)
	ListByOwner(ctx context.Context, owner models.Owner, limit int) ([]*models.Screening, error)
}

// LatestCache fronts Store.Latest. Get returns sentinel.ErrNotFound on a miss.
type LatestCache interface {
	Get(ctx context.Context, owner models.Owner) (*models.Screening, error)
	Put(ctx context.Context, s *models.Screening) error
}

type Publisher interface {
	PublishCompleted(ctx context.Context, event models.CompletedEvent) error
}

// Engine is the slice of the eligibility engine the service drives.
type Engine interface {
	ScreenAt(f facts.HouseholdFacts, locale string, at time.Time) eligibility.Outcome
	Render(programs []emodels.EvaluatedProgram, locale string) eligibility.Report
	Program(pid emodels.ProgramID, locale string) (eligibility.ProgramView, error)
}

// Result is a persisted screening with its rendered output.
type Result struct {
	Screening *models.Screening
	Outcome   eligibility.Outcome
}

// Service runs screenings and serves their history. It owns all I/O around
// the engine: persistence, caching, event publication.
type Service struct {
	engine    Engine
	store     Store
	cache     LatestCache
	breaker   *circuit.Breaker
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLatestCache(cache LatestCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithCacheBreaker stops calling the latest-screening cache after repeated
// failures and probes it again once the breaker's cooldown passes.
func WithCacheBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(engine Engine, store Store, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("benefind/screening"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Screen normalizes raw intake, evaluates it and persists the result. Event
// publication runs alongside persistence and never fails the screening.
func (s *Service) Screen(ctx context.Context, owner models.Owner, raw facts.RawIntake, locale string) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "screening.screen")
	defer span.End()

	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "screening owner is required")
	}

	f, err := facts.Normalize(raw)
	if err != nil {
		s.metrics.ObserveScreening(metrics.OutcomeInvalid, start)
		var verr *facts.ValidationError
		if errors.As(err, &verr) {
			span.AddEvent("intake rejected", trace.WithAttributes(attribute.Int("fields", len(verr.Fields))))
			return nil, validationError(verr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid intake")
	}

	outcome := s.engine.ScreenAt(f, locale, requestcontext.Now(ctx))
	span.SetAttributes(
		attribute.String("catalog.version", outcome.Results.CatalogVersion),
		attribute.Int("programs.surfaced", len(outcome.Results.Programs)),
	)

	screening, err := models.NewScreening(id.NewScreeningID(), owner, f.Intake(), outcome.Results, outcome.Locale, outcome.Results.CompletedAt)
	if err != nil {
		s.fail(span, "build screening", err)
		s.metrics.ObserveScreening(metrics.OutcomeError, start)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record screening")
	}

	if err := s.persistAndPublish(ctx, screening, outcome.Interactions); err != nil {
		s.fail(span, "persist screening", err)
		s.metrics.ObserveScreening(metrics.OutcomeError, start)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save screening")
	}

	s.metrics.ObserveScreening(metrics.OutcomeCompleted, start)
	s.metrics.IncrementSurfaced(outcome.Results.Programs)
	s.logger.InfoContext(ctx, "screening completed",
		"request_id", requestcontext.RequestID(ctx),
		"screening_id", screening.ID.String(),
		"catalog_version", outcome.Results.CatalogVersion,
		"programs", len(outcome.Results.Programs),
		"interactions", len(outcome.Interactions),
	)
	return &Result{Screening: screening, Outcome: outcome}, nil
}

func (s *Service) persistAndPublish(ctx context.Context, screening *models.Screening, interactions []emodels.BenefitInteraction) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.store.Save(gctx, screening); err != nil {
			return err
		}
		s.cachePut(gctx, screening)
		return nil
	})
	if s.publisher != nil {
		event := models.NewCompletedEvent(screening, interactions)
		g.Go(func() error {
			if err := s.publisher.PublishCompleted(gctx, event); err != nil {
				s.metrics.IncrementPublishFailure()
				s.logger.WarnContext(ctx, "failed to publish completed screening",
					"request_id", requestcontext.RequestID(ctx),
					"screening_id", screening.ID.String(),
					"error", err,
				)
			}
			return nil
		})
	}
	return g.Wait()
}

// Latest returns the owner's most recent screening.
func (s *Service) Latest(ctx context.Context, owner models.Owner) (*models.Screening, error) {
	ctx, span := s.tracer.Start(ctx, "screening.latest")
	defer span.End()

	if s.cacheAllowed() {
		cached, err := s.cache.Get(ctx, owner)
		s.recordCache(ctx, err)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "latest screening cache unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}

	screening, err := s.store.Latest(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no screening found")
		}
		s.fail(span, "load latest", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening")
	}
	s.cachePut(ctx, screening)
	return screening, nil
}

// List returns the owner's screenings, newest first. limit ≤ 0 selects the
// default; larger values are capped.
func (s *Service) List(ctx context.Context, owner models.Owner, limit int) ([]*models.Screening, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	list, err := s.store.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list screenings")
	}
	return list, nil
}

// Report re-renders a stored screening in locale, or in its original locale
// when locale is empty. Screenings of other owners are reported as not found.
func (s *Service) Report(ctx context.Context, owner models.Owner, sid id.ScreeningID, locale string) (*eligibility.Report, error) {
	ctx, span := s.tracer.Start(ctx, "screening.report")
	defer span.End()

	screening, err := s.store.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "screening not found")
		}
		s.fail(span, "load screening", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening")
	}
	if screening.Owner != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "screening not found")
	}
	if locale == "" {
		locale = screening.Locale
	}

	report := s.engine.Render(screening.Results.Programs, locale)
	if report.CatalogVersion != screening.Results.CatalogVersion {
		s.logger.InfoContext(ctx, "rendering screening against a newer catalog",
			"request_id", requestcontext.RequestID(ctx),
			"screening_id", sid.String(),
			"evaluated_version", screening.Results.CatalogVersion,
			"catalog_version", report.CatalogVersion,
		)
	}
	return &report, nil
}

// ProgramDetails describes one catalog program in locale.
func (s *Service) ProgramDetails(ctx context.Context, pid emodels.ProgramID, locale string) (*eligibility.ProgramView, error) {
	view, err := s.engine.Program(pid, locale)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	return &view, nil
}

func (s *Service) cacheAllowed() bool {
	return s.cache != nil && (s.breaker == nil || s.breaker.Allow())
}

func (s *Service) cachePut(ctx context.Context, screening *models.Screening) {
	if !s.cacheAllowed() {
		return
	}
	err := s.cache.Put(ctx, screening)
	s.recordCache(ctx, err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cache latest screening",
			"request_id", requestcontext.RequestID(ctx),
			"screening_id", screening.ID.String(),
			"error", err,
		)
	}
}

// recordCache feeds a cache call outcome to the breaker. A miss is a healthy
// answer.
func (s *Service) recordCache(ctx context.Context, err error) {
	if s.breaker == nil {
		return
	}
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "latest screening cache recovered", "breaker", s.breaker.Name())
		}
		return
	}
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "latest screening cache disabled after repeated failures",
			"request_id", requestcontext.RequestID(ctx),
			"breaker", s.breaker.Name(),
		)
	}
}

func (s *Service) fail(span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg+": "+err.Error())
}

func validationError(verr *facts.ValidationError) error {
	fields := make([]dErrors.Field, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, dErrors.Field{Name: f.Field, Reason: f.Reason})
	}
	return dErrors.Validation("intake has invalid fields", fields...)
}
