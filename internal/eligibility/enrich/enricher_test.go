package enrich

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/content"
	"benefind/internal/eligibility/models"
)

const enrichCatalogYAML = `
version: enrich-test
programs:
  - id: p1
    name: Catalog One
    nationwide: true
    required: [{id: x, kind: fpl_percent, percent: "100"}]
    interactions:
      - {target: p2, kind: prerequisite, explanation: "{{.Source}} first, then {{.Target}}"}
  - id: p2
    name: Catalog Two
    nationwide: true
    required: [{id: x, kind: fpl_percent, percent: "100"}]
  - id: p3
    name: Catalog Three
    nationwide: true
    required: [{id: x, kind: fpl_percent, percent: "100"}]
`

func fixtures(t *testing.T) (*catalog.Catalog, *Enricher) {
	t.Helper()
	c, err := catalog.Parse([]byte(enrichCatalogYAML))
	require.NoError(t, err)
	b, err := content.Parse(map[string][]byte{
		"en": []byte(`
locale: en
tiers: {likely: Likely, possible: Possible}
programs:
  p1: {name: One, summary: first}
  p2: {name: Two}
`),
		"es": []byte(`
locale: es
tiers: {likely: Probable, possible: Posible}
programs:
  p1: {name: Uno}
`),
	})
	require.NoError(t, err)
	return c, New(b, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func likely(id models.ProgramID) models.EvaluatedProgram {
	return models.EvaluatedProgram{ProgramID: id, Criteria: []models.CriterionResult{
		{ID: "x", Required: true, Outcome: models.OutcomePass},
	}}
}

func possible(id models.ProgramID) models.EvaluatedProgram {
	return models.EvaluatedProgram{ProgramID: id, Criteria: []models.CriterionResult{
		{ID: "x", Required: true, Outcome: models.OutcomeUnknown},
	}}
}

func TestOrderingIsTierThenCatalog(t *testing.T) {
	c, e := fixtures(t)

	got := e.Enrich(c, []models.EvaluatedProgram{possible("p1"), likely("p3"), likely("p2")}, nil, "en")

	require.Len(t, got, 3)
	assert.Equal(t, models.ProgramID("p2"), got[0].Program.ProgramID)
	assert.Equal(t, models.ProgramID("p3"), got[1].Program.ProgramID)
	assert.Equal(t, models.ProgramID("p1"), got[2].Program.ProgramID)
	assert.Equal(t, models.TierPossible, got[2].Tier)
	assert.Equal(t, "Possible", got[2].Content.TierLabel)
}

func TestContentFallback(t *testing.T) {
	c, e := fixtures(t)
	evaluated := []models.EvaluatedProgram{likely("p1"), likely("p2"), likely("p3")}

	got := e.Enrich(c, evaluated, nil, "es-MX")
	require.Len(t, got, 3)

	assert.Equal(t, "Uno", got[0].Content.Name)
	assert.Equal(t, "es", got[0].ContentLocale)
	assert.False(t, got[0].ContentFallback)
	assert.Equal(t, "Probable", got[0].Content.TierLabel)

	assert.Equal(t, "Two", got[1].Content.Name, "falls back to default locale")
	assert.Equal(t, "en", got[1].ContentLocale)
	assert.True(t, got[1].ContentFallback)
	assert.Equal(t, "Likely", got[1].Content.TierLabel)

	assert.Equal(t, "Catalog Three", got[2].Content.Name, "falls back to catalog name")
	assert.True(t, got[2].ContentFallback)
}

func TestUnknownLocaleUsesDefault(t *testing.T) {
	c, e := fixtures(t)

	got := e.Enrich(c, []models.EvaluatedProgram{likely("p1")}, nil, "")
	require.Len(t, got, 1)
	assert.Equal(t, "One", got[0].Content.Name)
	assert.Equal(t, "first", got[0].Content.Summary)
	assert.False(t, got[0].ContentFallback)
}

func TestPrerequisiteAttachedToBothPrograms(t *testing.T) {
	c, e := fixtures(t)
	prereq := models.BenefitInteraction{
		ProgramA: "p1", ProgramB: "p2", Kind: models.InteractionPrerequisite,
		Explanation: "Catalog One first, then Catalog Two", DeclaredBy: "p1",
	}

	got := e.Enrich(c, []models.EvaluatedProgram{likely("p1"), possible("p2"), likely("p3")}, []models.BenefitInteraction{prereq}, "en")

	require.Len(t, got, 3)
	byID := map[models.ProgramID]models.EnrichedResult{}
	for _, r := range got {
		byID[r.Program.ProgramID] = r
	}
	assert.Equal(t, []models.BenefitInteraction{prereq}, byID["p1"].Interactions)
	assert.Equal(t, []models.BenefitInteraction{prereq}, byID["p2"].Interactions)
	assert.Empty(t, byID["p3"].Interactions)
	assert.NotNil(t, byID["p3"].Interactions)
}

func TestUnknownProgramIsNeverDropped(t *testing.T) {
	c, e := fixtures(t)

	got := e.Enrich(c, []models.EvaluatedProgram{likely("retired"), likely("p1")}, nil, "en")
	require.Len(t, got, 2)
	assert.Equal(t, models.ProgramID("p1"), got[0].Program.ProgramID)
	assert.Equal(t, "retired", got[1].Content.Name)
}

func TestEnrichIsByteIdentical(t *testing.T) {
	c, e := fixtures(t)
	evaluated := []models.EvaluatedProgram{possible("p2"), likely("p1"), likely("p3")}
	interactions := []models.BenefitInteraction{{ProgramA: "p1", ProgramB: "p2", Kind: models.InteractionPrerequisite, DeclaredBy: "p1"}}

	first, err := json.Marshal(e.Enrich(c, evaluated, interactions, "es"))
	require.NoError(t, err)
	for range 20 {
		again, err := json.Marshal(e.Enrich(c, evaluated, interactions, "es"))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestEnrichDoesNotReorderInput(t *testing.T) {
	c, e := fixtures(t)
	evaluated := []models.EvaluatedProgram{possible("p2"), likely("p1")}

	e.Enrich(c, evaluated, nil, "en")
	assert.Equal(t, models.ProgramID("p2"), evaluated[0].ProgramID)
}
