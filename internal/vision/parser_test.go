package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedReply = `Voici les composants identifiés :

1. **Poteau électrique**
   Confiance : 92%
   Détails : Poteau en bois de distribution
   État : Bon état général
   Risques : Végétation dense à la base

2. **Transformateur**
   Confiance : 87%
   Détails : Transformateur aérien monophasé
   État : Oxydation légère
   Risques : Branches à moins de 2 m

3. **Ligne électrique**
   Confiance : 95%
   Détails : Trois conducteurs moyenne tension
   État : Tension correcte
   Risques : Croissance d'arbres sous la portée
`

func TestParseComponents_WellFormedList(t *testing.T) {
	got := ParseComponents(wellFormedReply)
	require.Len(t, got, 3)

	assert.Equal(t, "Poteau électrique", got[0].Type)
	assert.InDelta(t, 0.92, got[0].Confidence, 1e-9)
	assert.Equal(t, "Poteau en bois de distribution", got[0].Details)
	assert.Equal(t, "Bon état général", got[0].Condition)
	assert.Equal(t, "Végétation dense à la base", got[0].Risks)

	assert.Equal(t, "Transformateur", got[1].Type)
	assert.Equal(t, "Ligne électrique", got[2].Type)
	for _, c := range got {
		assert.NotEmpty(t, c.Details)
		assert.NotEmpty(t, c.Condition)
		assert.NotEmpty(t, c.Risks)
	}
}

func TestParseComponents_DisclaimerOnlyYieldsEmpty(t *testing.T) {
	text := `I'm sorry, but I cannot identify specific infrastructure in this image.
As an AI I am unable to provide an analysis of electrical equipment.`
	got := ParseComponents(text)
	assert.Empty(t, got)
}

func TestParseComponents_KeywordFallback(t *testing.T) {
	// no bold label, no labeled type field: the keyword rule must fire
	text := `1. On voit un grand poteau en bois au centre de l'image, environ 80% sûr.
2. Des câbles traversent la partie haute de la photo.`
	got := ParseComponents(text)
	require.Len(t, got, 2)
	assert.Equal(t, "Poteau électrique", got[0].Type)
	assert.InDelta(t, 0.80, got[0].Confidence, 1e-9)
	assert.Equal(t, "Ligne électrique", got[1].Type)
	assert.InDelta(t, 0.5, got[1].Confidence, 1e-9, "missing percentage defaults")
}

func TestParseComponents_PropertyNameEchoDiscarded(t *testing.T) {
	text := `1. **Component Type**
   Confiance : 90%
2. **Poteau électrique**
   Confiance : 85%`
	got := ParseComponents(text)
	require.Len(t, got, 1)
	assert.Equal(t, "Poteau électrique", got[0].Type)
}

func TestParseComponents_NearDuplicatesCollapsed(t *testing.T) {
	text := `1. **Poteau électrique**
   Confiance : 90%
   Détails : premier poteau
2. **Poteau en bois**
   Confiance : 70%
   Détails : second poteau
3. **Transformateur**
   Confiance : 80%`
	got := ParseComponents(text)
	require.Len(t, got, 2)
	assert.Equal(t, "Poteau électrique", got[0].Type)
	assert.Equal(t, "premier poteau", got[0].Details, "first occurrence wins")
	assert.Equal(t, "Transformateur", got[1].Type)
}

func TestParseComponents_UnlistedTextSingleItem(t *testing.T) {
	got := ParseComponents("Un transformateur aérien est visible, confiance 75%.")
	require.Len(t, got, 1)
	assert.Equal(t, "Transformateur", got[0].Type)
	assert.InDelta(t, 0.75, got[0].Confidence, 1e-9)
}

func TestParseComponents_EmptyInput(t *testing.T) {
	assert.Empty(t, ParseComponents(""))
	assert.Empty(t, ParseComponents("   \n  "))
}

func TestParseComponents_ConfidenceClamped(t *testing.T) {
	got := ParseComponents("1. **Poteau électrique** Confiance : 250%")
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestAnnotate_LayoutWithinBoundsAndDeterministic(t *testing.T) {
	comps := ParseComponents(wellFormedReply)
	a := Annotate(comps)
	b := Annotate(comps)
	require.Len(t, a, len(comps))
	assert.Equal(t, a, b, "layout must be deterministic")

	for _, an := range a {
		g := an.Geometry
		assert.GreaterOrEqual(t, g.X, 0.0)
		assert.GreaterOrEqual(t, g.Y, 0.0)
		assert.LessOrEqual(t, g.X+g.Width, 100.0)
		assert.LessOrEqual(t, g.Y+g.Height, 100.0)
		assert.NotEmpty(t, an.ID)
		assert.NotEmpty(t, an.Label)
	}

	// category bias: the pole annotation is tall and narrow, the line
	// annotation wide and thin
	poleGeom := a[0].Geometry
	lineGeom := a[2].Geometry
	assert.Greater(t, poleGeom.Height, 3*poleGeom.Width)
	assert.Greater(t, lineGeom.Width, 3*lineGeom.Height)
}
