package future

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

func TestBuildReport_RiskRules(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rep := BuildReport([]model.Component{
		{Type: "Transformateur"},
		{Type: "Ligne électrique"},
		{Type: "Poteau électrique"},
	}, now)

	require.Len(t, rep.PotentialIssues, 3)
	assert.Equal(t, "Élevé", rep.PotentialIssues[0].Risk)
	assert.Equal(t, "Moyen", rep.PotentialIssues[1].Risk)
	assert.Equal(t, "Faible", rep.PotentialIssues[2].Risk)
	assert.Equal(t, "2031", rep.ProjectionDate)
}

func TestBuildReport_DedupesByType(t *testing.T) {
	rep := BuildReport([]model.Component{
		{Type: "Poteau électrique"},
		{Type: "poteau électrique"},
		{Type: "Isolateur"},
	}, time.Now())

	require.Len(t, rep.PotentialIssues, 2)
	assert.Equal(t, "Poteau électrique", rep.PotentialIssues[0].Component)
	assert.Equal(t, "Isolateur", rep.PotentialIssues[1].Component)
}

func TestBuildReport_UnknownTypeGetsDefaultRisk(t *testing.T) {
	rep := BuildReport([]model.Component{{Type: "Composant non classé"}}, time.Now())

	require.Len(t, rep.PotentialIssues, 1)
	assert.Equal(t, "Faible", rep.PotentialIssues[0].Risk)
	assert.Equal(t, defaultIssueDescription, rep.PotentialIssues[0].Description)
}

func TestBuildReport_HighRiskAddsRecommendation(t *testing.T) {
	low := BuildReport([]model.Component{{Type: "Poteau électrique"}}, time.Now())
	high := BuildReport([]model.Component{{Type: "Transformateur"}}, time.Now())

	assert.Len(t, low.Recommendations, len(baseRecommendations))
	require.Len(t, high.Recommendations, len(baseRecommendations)+1)
	assert.Contains(t, high.Recommendations[len(high.Recommendations)-1], "risque élevé")
}

func TestBuildReport_EmptyAndBlankComponents(t *testing.T) {
	rep := BuildReport([]model.Component{{Type: ""}}, time.Now())
	assert.Empty(t, rep.PotentialIssues)
	assert.NotEmpty(t, rep.Recommendations)
	assert.NotEmpty(t, rep.VegetationGrowth)
}
