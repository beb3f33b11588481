package future

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

// reportRule maps a component to its projected vegetation risk. Rules run
// in order; the first predicate match wins.
type reportRule struct {
	match       func(componentType string) bool
	risk        string
	description string
}

func keywordMatch(keywords ...string) func(string) bool {
	return func(componentType string) bool {
		low := strings.ToLower(componentType)
		for _, kw := range keywords {
			if strings.Contains(low, kw) {
				return true
			}
		}
		return false
	}
}

var reportRules = []reportRule{
	{
		match:       keywordMatch("transformateur", "transformer"),
		risk:        "Élevé",
		description: "La végétation atteindra le boîtier du transformateur",
	},
	{
		match:       keywordMatch("ligne", "line", "câble", "cable", "conducteur", "wire"),
		risk:        "Moyen",
		description: "Les branches hautes approcheront les conducteurs",
	},
	{
		match:       keywordMatch("poste", "substation"),
		risk:        "Moyen",
		description: "La végétation gênera l'accès de maintenance au poste",
	},
	{
		match:       keywordMatch("isolateur", "insulator"),
		risk:        "Faible",
		description: "Encrassement des isolateurs par la végétation proche",
	},
	{
		match:       keywordMatch("poteau", "pole", "pylône", "pylone"),
		risk:        "Faible",
		description: "Végétation basse autour de la base du poteau",
	},
}

const defaultIssueDescription = "Végétation en croissance à proximité du composant"

var baseRecommendations = []string{
	"Planifier un élagage préventif dans les 18 mois",
	"Surveiller la croissance lors des tournées d'inspection",
}

// BuildReport synthesizes the fixed-shape risk report from the analysis
// component list. Deduplicates by component type, keeps input order.
func BuildReport(components []model.Component, now time.Time) model.FutureAnalysis {
	issues := make([]model.PotentialIssue, 0, len(components))
	seen := map[string]struct{}{}
	highRisk := false

	for _, comp := range components {
		if comp.Type == "" {
			continue
		}
		key := strings.ToLower(comp.Type)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		issue := model.PotentialIssue{
			Component:   comp.Type,
			Risk:        "Faible",
			Description: defaultIssueDescription,
		}
		for _, r := range reportRules {
			if r.match(comp.Type) {
				issue.Risk = r.risk
				issue.Description = r.description
				break
			}
		}
		if issue.Risk == "Élevé" {
			highRisk = true
		}
		issues = append(issues, issue)
	}

	recs := append([]string(nil), baseRecommendations...)
	if highRisk {
		recs = append(recs, "Intervenir en priorité sur les composants à risque élevé")
	}

	return model.FutureAnalysis{
		ProjectionDate:   now.AddDate(5, 0, 0).Format("2006"),
		VegetationGrowth: "Croissance estimée de 3 à 5 m de végétation sur 5 ans",
		PotentialIssues:  issues,
		Recommendations:  recs,
	}
}
