package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"benefind/internal/eligibility/catalog"
	emodels "benefind/internal/eligibility/models"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScreening(OutcomeCompleted, time.Now())
	m.ObserveScreening(OutcomeInvalid, time.Now())
	m.ObserveScreening(OutcomeCompleted, time.Now())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues(OutcomeInvalid)))

	m.IncrementSurfaced([]emodels.EvaluatedProgram{
		{ProgramID: "snap", Criteria: []emodels.CriterionResult{{ID: "x", Required: true, Outcome: emodels.OutcomePass}}},
		{ProgramID: "ssi", Criteria: []emodels.CriterionResult{{ID: "x", Required: true, Outcome: emodels.OutcomeUnknown}}},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProgramsSurfaced.WithLabelValues("snap", "likely")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProgramsSurfaced.WithLabelValues("ssi", "possible")))

	m.IncrementCatalogIssue(catalog.IssueDanglingHook)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogIssues.WithLabelValues("dangling_hook")))

	m.IncrementCatalogReload(nil)
	m.IncrementCatalogReload(errors.New("bad yaml"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogReloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogReloads.WithLabelValues("failed")))

	m.IncrementPublishFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScreening(OutcomeError, time.Now())
		m.IncrementSurfaced(nil)
		m.IncrementCatalogIssue(catalog.IssueSelfHook)
		m.IncrementCatalogReload(nil)
		m.IncrementPublishFailure()
	})
}
