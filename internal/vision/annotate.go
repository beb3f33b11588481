package vision

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
)

const goldenRatio = 0.618033988749895

// Annotate assigns a bounding box to each component. Boxes are decorative:
// they come from an index-based golden-ratio layout biased by component
// category, not from pixel detection, and are expressed as percentages of
// the image dimensions. Deterministic for a given component list.
func Annotate(components []model.Component) []model.Annotation {
	out := make([]model.Annotation, 0, len(components))
	for i, comp := range components {
		frac := math.Mod(float64(i+1)*goldenRatio, 1.0)
		g := geometryFor(normalizeCategory(comp.Type), frac)
		out = append(out, model.Annotation{
			ID:          fmt.Sprintf("component-%d", i+1),
			Geometry:    g,
			Label:       comp.Type,
			Description: comp.Details,
		})
	}
	return out
}

func geometryFor(category string, frac float64) model.Geometry {
	var g model.Geometry
	switch category {
	case "Ligne électrique":
		// wide and thin, near the top
		g = model.Geometry{
			X:      4 + frac*8,
			Y:      6 + frac*14,
			Width:  70 + frac*18,
			Height: 5 + frac*5,
		}
	case "Poteau électrique":
		// tall and narrow
		g = model.Geometry{
			X:      12 + frac*62,
			Y:      12 + frac*10,
			Width:  7 + frac*5,
			Height: 55 + frac*18,
		}
	case "Transformateur":
		g = model.Geometry{
			X:      22 + frac*46,
			Y:      18 + frac*22,
			Width:  14 + frac*8,
			Height: 13 + frac*9,
		}
	case "Poste de transformation":
		g = model.Geometry{
			X:      10 + frac*24,
			Y:      24 + frac*16,
			Width:  46 + frac*20,
			Height: 38 + frac*16,
		}
	default:
		g = model.Geometry{
			X:      10 + frac*55,
			Y:      18 + frac*42,
			Width:  12 + frac*8,
			Height: 12 + frac*8,
		}
	}
	return clamp(g)
}

func clamp(g model.Geometry) model.Geometry {
	if g.Width > 96 {
		g.Width = 96
	}
	if g.Height > 96 {
		g.Height = 96
	}
	if g.X+g.Width > 98 {
		g.X = 98 - g.Width
	}
	if g.Y+g.Height > 98 {
		g.Y = 98 - g.Height
	}
	if g.X < 0 {
		g.X = 0
	}
	if g.Y < 0 {
		g.Y = 0
	}
	return g
}
