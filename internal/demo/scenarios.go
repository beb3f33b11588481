package demo

import (
	"time"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

const DefaultScenario = "powerline"

// Scenario bundles one demo image with its pre-written analysis and
// projection payloads. The selected scenario is authoritative for which
// image is served; nothing else picks image files.
type Scenario struct {
	Name       string
	ImageFile  string
	FutureFile string
	Analysis   model.AnalysisResult
	Future     model.FutureResult
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	registry[s.Name] = s
}

func Lookup(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists registered scenarios in no particular order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}

func projectionYear() string {
	return time.Now().AddDate(5, 0, 0).Format("2006")
}

func init() {
	register(Scenario{
		Name:       "powerline",
		ImageFile:  "powerline.jpg",
		FutureFile: "powerline_future.jpg",
		Analysis: model.AnalysisResult{
			Components: []model.Component{
				{
					Type:       "Ligne électrique",
					Confidence: 0.96,
					Details:    "Ligne de distribution moyenne tension à trois conducteurs",
					Condition:  "Conducteurs tendus, isolateurs intacts",
					Risks:      "Rangée de peupliers en croissance sous la portée",
				},
				{
					Type:       "Poteau électrique",
					Confidence: 0.91,
					Details:    "Poteau en bois traité, traverse simple",
					Condition:  "Bon état, fixations visibles et saines",
					Risks:      "Lierre grimpant sur le tiers inférieur du poteau",
				},
			},
			Annotations: []model.Annotation{
				{
					ID:          "powerline-1",
					Geometry:    model.Geometry{X: 6, Y: 10, Width: 88, Height: 8},
					Label:       "Ligne électrique",
					Description: "Portée principale moyenne tension",
				},
				{
					ID:          "powerline-2",
					Geometry:    model.Geometry{X: 44, Y: 16, Width: 9, Height: 66},
					Label:       "Poteau électrique",
					Description: "Poteau en bois traité",
				},
			},
		},
		Future: model.FutureResult{
			Analysis: model.FutureAnalysis{
				ProjectionDate:   projectionYear(),
				VegetationGrowth: "Les peupliers gagneront 4 à 6 m et atteindront la portée",
				PotentialIssues: []model.PotentialIssue{
					{
						Component:   "Ligne électrique",
						Risk:        "Élevé",
						Description: "Contact probable entre branches et conducteurs",
					},
					{
						Component:   "Poteau électrique",
						Risk:        "Moyen",
						Description: "Le lierre atteindra la traverse",
					},
				},
				Recommendations: []string{
					"Élaguer la rangée de peupliers avant deux saisons de croissance",
					"Retirer le lierre du poteau lors de la prochaine inspection",
				},
			},
		},
	})

	register(Scenario{
		Name:       "transformer",
		ImageFile:  "transformer.jpg",
		FutureFile: "transformer_future.jpg",
		Analysis: model.AnalysisResult{
			Components: []model.Component{
				{
					Type:       "Transformateur",
					Confidence: 0.93,
					Details:    "Transformateur aérien triphasé sur portique",
					Condition:  "Oxydation légère, joints d'étanchéité corrects",
					Risks:      "Arbustes à moins de 1,5 m du portique",
				},
				{
					Type:       "Ligne électrique",
					Confidence: 0.88,
					Details:    "Départs basse tension vers le quartier",
					Condition:  "Gaines isolantes en bon état",
					Risks:      "Branche morte surplombant un départ",
				},
			},
			Annotations: []model.Annotation{
				{
					ID:          "transformer-1",
					Geometry:    model.Geometry{X: 36, Y: 28, Width: 22, Height: 24},
					Label:       "Transformateur",
					Description: "Transformateur aérien triphasé",
				},
				{
					ID:          "transformer-2",
					Geometry:    model.Geometry{X: 10, Y: 14, Width: 76, Height: 7},
					Label:       "Ligne électrique",
					Description: "Départs basse tension",
				},
			},
		},
		Future: model.FutureResult{
			Analysis: model.FutureAnalysis{
				ProjectionDate:   projectionYear(),
				VegetationGrowth: "Arbustes au niveau du portique, branche morte fragilisée",
				PotentialIssues: []model.PotentialIssue{
					{
						Component:   "Transformateur",
						Risk:        "Élevé",
						Description: "La végétation enveloppera le bas du portique",
					},
					{
						Component:   "Ligne électrique",
						Risk:        "Moyen",
						Description: "Chute possible de la branche morte sur un départ",
					},
				},
				Recommendations: []string{
					"Dégager un périmètre de 3 m autour du portique",
					"Abattre la branche morte en priorité",
				},
			},
		},
	})

	register(Scenario{
		Name:       "substation",
		ImageFile:  "substation.jpg",
		FutureFile: "substation_future.jpg",
		Analysis: model.AnalysisResult{
			Components: []model.Component{
				{
					Type:       "Poste de transformation",
					Confidence: 0.9,
					Details:    "Petit poste de distribution clôturé",
					Condition:  "Clôture intacte, signalisation lisible",
					Risks:      "Haie non entretenue le long de la clôture est",
				},
				{
					Type:       "Isolateur",
					Confidence: 0.82,
					Details:    "Chaînes d'isolateurs en verre sur le jeu de barres",
					Condition:  "Aucune fissure visible",
					Risks:      "Dépôt de pollen et poussière végétale",
				},
			},
			Annotations: []model.Annotation{
				{
					ID:          "substation-1",
					Geometry:    model.Geometry{X: 18, Y: 30, Width: 64, Height: 52},
					Label:       "Poste de transformation",
					Description: "Poste de distribution clôturé",
				},
				{
					ID:          "substation-2",
					Geometry:    model.Geometry{X: 58, Y: 18, Width: 12, Height: 14},
					Label:       "Isolateur",
					Description: "Chaînes d'isolateurs en verre",
				},
			},
		},
		Future: model.FutureResult{
			Analysis: model.FutureAnalysis{
				ProjectionDate:   projectionYear(),
				VegetationGrowth: "La haie dépassera la clôture de 2 m côté est",
				PotentialIssues: []model.PotentialIssue{
					{
						Component:   "Poste de transformation",
						Risk:        "Moyen",
						Description: "Accès de maintenance obstrué par la haie",
					},
					{
						Component:   "Isolateur",
						Risk:        "Faible",
						Description: "Encrassement accéléré par la végétation proche",
					},
				},
				Recommendations: []string{
					"Tailler la haie à hauteur de clôture chaque année",
					"Nettoyer les chaînes d'isolateurs lors de l'arrêt programmé",
				},
			},
		},
	})
}
