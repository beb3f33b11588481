package vision

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

// UnclassifiedType tags items where no extraction rule produced a usable
// component type.
const UnclassifiedType = "Composant non classé"

var (
	itemMarker    = regexp.MustCompile(`(?m)^\s{0,3}\d{1,2}[.)]\s+`)
	boldLabel     = regexp.MustCompile(`\*\*([^*\n]{2,60})\*\*`)
	typeField     = regexp.MustCompile(`(?i)(?:type\s+de\s+composant|component\s+type|type)\s*[:\-]\s*([^\n]+)`)
	confField     = regexp.MustCompile(`(?i)(?:confiance|confidence)\s*[:\-]?\s*(\d{1,3})\s*%`)
	anyPercent    = regexp.MustCompile(`(\d{1,3})\s*%`)
	detailsField  = regexp.MustCompile(`(?i)(?:détails|details|description)\s*[:\-]\s*([^\n]+)`)
	condField     = regexp.MustCompile(`(?i)(?:état|condition)\s*[:\-]\s*([^\n]+)`)
	risksField    = regexp.MustCompile(`(?i)(?:risques?|risks?)\s*[:\-]\s*([^\n]+)`)
	firstLineName = regexp.MustCompile(`^([^\n:]{2,60})\s*[:\n]`)
)

// property-name echoes the model sometimes emits instead of a real label
var propertyNames = map[string]struct{}{
	"component type":    {},
	"type":              {},
	"type de composant": {},
	"composant":         {},
	"confidence":        {},
	"confiance":         {},
}

var disclaimerMarkers = []string{
	"i cannot", "i'm unable", "i am unable", "as an ai",
	"je ne peux pas", "désolé", "sorry", "unable to identify",
}

// keyword table mapping free text to a canonical category. Order matters:
// the first matching entry wins.
var keywordCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"transformateur", "transformer"}, "Transformateur"},
	{[]string{"poste", "substation"}, "Poste de transformation"},
	{[]string{"isolateur", "insulator"}, "Isolateur"},
	{[]string{"poteau", "pole", "pylône", "pylone", "pylon"}, "Poteau électrique"},
	{[]string{"ligne", "line", "câble", "cable", "wire", "conducteur", "conductor"}, "Ligne électrique"},
}

// typeRule is one extraction strategy. Rules run in order; the first one
// that yields a usable string decides the type.
type typeRule struct {
	name    string
	extract func(item string) (string, bool)
}

var typeRules = []typeRule{
	{"bold-label", func(item string) (string, bool) {
		if m := boldLabel.FindStringSubmatch(item); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		return "", false
	}},
	{"labeled-field", func(item string) (string, bool) {
		if m := typeField.FindStringSubmatch(item); m != nil {
			return strings.TrimSpace(strings.Trim(m[1], " .*")), true
		}
		return "", false
	}},
	{"first-line", func(item string) (string, bool) {
		if m := firstLineName.FindStringSubmatch(item); m != nil {
			s := strings.TrimSpace(strings.Trim(m[1], " .*-"))
			if s != "" && !strings.ContainsAny(s, "%") {
				return s, true
			}
		}
		return "", false
	}},
	{"keyword", func(item string) (string, bool) {
		if cat := categoryOf(item); cat != "" {
			return cat, true
		}
		return "", false
	}},
}

// ParseComponents extracts structured component records from the model's
// free-text reply. Zero extracted components yields an empty list, not an
// error: the caller returns it verbatim.
func ParseComponents(text string) []model.Component {
	items := splitItems(text)
	out := make([]model.Component, 0, len(items))
	seen := map[string]struct{}{}

	for _, item := range items {
		if isDisclaimer(item) {
			continue
		}
		comp, ok := extractComponent(item)
		if !ok {
			continue
		}
		key := normalizeCategory(comp.Type)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, comp)
	}
	return out
}

// splitItems returns the segments of a numbered markdown list, or the whole
// text as one item when no list is found.
func splitItems(text string) []string {
	locs := itemMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		t := strings.TrimSpace(text)
		if t == "" {
			return nil
		}
		return []string{t}
	}
	items := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		item := strings.TrimSpace(text[loc[1]:end])
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func extractComponent(item string) (model.Component, bool) {
	var typ string
	for _, r := range typeRules {
		if v, ok := r.extract(item); ok && v != "" {
			typ = v
			break
		}
	}
	if typ == "" {
		typ = UnclassifiedType
	}
	if _, echo := propertyNames[strings.ToLower(strings.TrimSpace(typ))]; echo {
		return model.Component{}, false
	}
	if isDisclaimer(typ) {
		return model.Component{}, false
	}

	return model.Component{
		Type:       typ,
		Confidence: extractConfidence(item),
		Details:    extractField(detailsField, item),
		Condition:  extractField(condField, item),
		Risks:      extractField(risksField, item),
	}, true
}

func extractConfidence(item string) float64 {
	m := confField.FindStringSubmatch(item)
	if m == nil {
		m = anyPercent.FindStringSubmatch(item)
	}
	if m == nil {
		return 0.5
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0.5
	}
	if n > 100 {
		n = 100
	}
	return float64(n) / 100
}

func extractField(re *regexp.Regexp, item string) string {
	if m := re.FindStringSubmatch(item); m != nil {
		return strings.TrimSpace(strings.Trim(m[1], " .*"))
	}
	return ""
}

func isDisclaimer(s string) bool {
	low := strings.ToLower(s)
	for _, marker := range disclaimerMarkers {
		if strings.Contains(low, marker) {
			return true
		}
	}
	return false
}

// categoryOf maps arbitrary text to a canonical component category, or ""
// when no keyword matches.
func categoryOf(text string) string {
	low := strings.ToLower(text)
	for _, kc := range keywordCategories {
		for _, kw := range kc.keywords {
			if strings.Contains(low, kw) {
				return kc.category
			}
		}
	}
	return ""
}

// normalizeCategory collapses near-duplicate types onto one key.
func normalizeCategory(typ string) string {
	if cat := categoryOf(typ); cat != "" {
		return cat
	}
	return strings.ToLower(strings.TrimSpace(typ))
}
