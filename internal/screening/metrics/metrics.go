package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"benefind/internal/eligibility/catalog"
	emodels "benefind/internal/eligibility/models"
)

// Outcome labels for ScreeningsTotal.
const (
	OutcomeCompleted = "completed"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics provides observability for screenings and the catalog behind them.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ScreeningsTotal   *prometheus.CounterVec
	ScreeningDuration prometheus.Histogram
	ProgramsSurfaced  *prometheus.CounterVec
	CatalogIssues     *prometheus.CounterVec
	CatalogReloads    *prometheus.CounterVec
	PublishFailures   prometheus.Counter
}

// New registers every screening metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScreeningsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefind_screenings_total",
			Help: "Screenings handled, by outcome",
		}, []string{"outcome"}),
		ScreeningDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "benefind_screening_duration_seconds",
			Help:    "Duration of a screening from intake to persisted result",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ProgramsSurfaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefind_programs_surfaced_total",
			Help: "Programs surfaced by screenings, by program and tier",
		}, []string{"program", "tier"}),
		CatalogIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefind_catalog_issues_total",
			Help: "Catalog integrity issues seen at load or resolution, by kind",
		}, []string{"kind"}),
		CatalogReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefind_catalog_reloads_total",
			Help: "Catalog reload attempts, by result",
		}, []string{"result"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "benefind_screening_publish_failures_total",
			Help: "Completed-screening events that could not be published",
		}),
	}
}

// ObserveScreening records one screening attempt and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScreening(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.ScreeningsTotal.WithLabelValues(outcome).Inc()
	m.ScreeningDuration.Observe(time.Since(start).Seconds())
}

// IncrementSurfaced counts every surfaced program by tier.
func (m *Metrics) IncrementSurfaced(programs []emodels.EvaluatedProgram) {
	if m == nil {
		return
	}
	for _, p := range programs {
		m.ProgramsSurfaced.WithLabelValues(string(p.ProgramID), string(p.Tier())).Inc()
	}
}

// IncrementCatalogIssue matches the engine's issue counter signature.
func (m *Metrics) IncrementCatalogIssue(kind catalog.IssueKind) {
	if m == nil {
		return
	}
	m.CatalogIssues.WithLabelValues(string(kind)).Inc()
}

// IncrementCatalogReload records a reload attempt.
func (m *Metrics) IncrementCatalogReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.CatalogReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
