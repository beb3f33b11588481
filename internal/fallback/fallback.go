// Package fallback provides the hardcoded payloads served when neither a
// live call nor a cached result is available. The content mirrors the demo
// dataset; French field text is intentional.
package fallback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/cache"
	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

// SessionHash is the synthetic key used when fallback output is seeded into
// the cache, so repeated fallback calls in one session stay identical.
const SessionHash = "fallback-session"

func Analysis() model.AnalysisResult {
	return model.AnalysisResult{
		Components: []model.Component{
			{
				Type:       "Poteau électrique",
				Confidence: 0.92,
				Details:    "Poteau en bois de distribution, hauteur estimée 12 m",
				Condition:  "Bon état général, légère usure à la base",
				Risks:      "Végétation dense à proximité immédiate du poteau",
			},
			{
				Type:       "Transformateur",
				Confidence: 0.87,
				Details:    "Transformateur aérien monophasé monté sur poteau",
				Condition:  "Traces d'oxydation sur le boîtier",
				Risks:      "Branches à moins de 2 m du boîtier, risque de contact",
			},
			{
				Type:       "Ligne électrique",
				Confidence: 0.95,
				Details:    "Lignes de distribution moyenne tension, trois conducteurs",
				Condition:  "Tension des câbles correcte, isolateurs visibles",
				Risks:      "Croissance d'arbres sous la portée principale",
			},
		},
		Annotations: []model.Annotation{
			{
				ID:          "fallback-1",
				Geometry:    model.Geometry{X: 38, Y: 18, Width: 10, Height: 62},
				Label:       "Poteau électrique",
				Description: "Poteau en bois de distribution",
			},
			{
				ID:          "fallback-2",
				Geometry:    model.Geometry{X: 52, Y: 26, Width: 16, Height: 18},
				Label:       "Transformateur",
				Description: "Transformateur aérien monophasé",
			},
			{
				ID:          "fallback-3",
				Geometry:    model.Geometry{X: 8, Y: 12, Width: 84, Height: 9},
				Label:       "Ligne électrique",
				Description: "Lignes de distribution moyenne tension",
			},
		},
	}
}

func Future(projectionDate string) model.FutureResult {
	if projectionDate == "" {
		projectionDate = time.Now().AddDate(5, 0, 0).Format("2006")
	}
	return model.FutureResult{
		FutureImage: "",
		Analysis: model.FutureAnalysis{
			ProjectionDate:   projectionDate,
			VegetationGrowth: "Croissance estimée de 3 à 5 m de végétation sur 5 ans",
			PotentialIssues: []model.PotentialIssue{
				{
					Component:   "Transformateur",
					Risk:        "Élevé",
					Description: "La végétation atteindra le boîtier du transformateur",
				},
				{
					Component:   "Ligne électrique",
					Risk:        "Moyen",
					Description: "Les branches hautes approcheront les conducteurs",
				},
				{
					Component:   "Poteau électrique",
					Risk:        "Faible",
					Description: "Végétation basse autour de la base du poteau",
				},
			},
			Recommendations: []string{
				"Planifier un élagage préventif dans les 18 mois",
				"Inspecter le transformateur lors de la prochaine tournée",
				"Dégager un corridor de 3 m sous la portée principale",
			},
		},
	}
}

// Seed inserts the fallback payloads into the cache under the synthetic
// session key. Errors are impossible by construction; the cache swallows
// storage failures itself.
func Seed(ctx context.Context, c *cache.Cache) {
	if c == nil {
		return
	}
	if b, err := json.Marshal(Analysis()); err == nil {
		c.Put(ctx, cache.OpAnalyze, SessionHash, b, cache.SourceFallback)
	}
	if b, err := json.Marshal(Future("")); err == nil {
		c.Put(ctx, cache.OpFuture, SessionHash, b, cache.SourceFallback)
	}
}
