// Package model defines core domain types shared across the service.
package model

// Component is one identified piece of electrical infrastructure.
type Component struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details"`
	Condition  string  `json:"condition"`
	Risks      string  `json:"risks"`
}

// Geometry is expressed as percentages of the image dimensions.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Annotation struct {
	ID          string   `json:"id"`
	Geometry    Geometry `json:"geometry"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}

type AnalysisResult struct {
	Components  []Component  `json:"components"`
	Annotations []Annotation `json:"annotations"`
}

type PotentialIssue struct {
	Component   string `json:"component"`
	Risk        string `json:"risk"`
	Description string `json:"description"`
}

type FutureAnalysis struct {
	ProjectionDate   string           `json:"projectionDate"`
	VegetationGrowth string           `json:"vegetationGrowth"`
	PotentialIssues  []PotentialIssue `json:"potentialIssues"`
	Recommendations  []string         `json:"recommendations"`
}

type FutureResult struct {
	FutureImage string         `json:"futureImage"`
	Analysis    FutureAnalysis `json:"analysis"`
}

// Meta describes how a response payload was obtained.
type Meta struct {
	Source     string `json:"source"`
	Status     string `json:"status"`
	Hash       string `json:"hash"`
	DurationMS int64  `json:"duration_ms"`
}

type ImageRequest struct {
	Image string `json:"image"`
}

type AnalyzeResponse struct {
	AnalysisResult
	Meta Meta `json:"_meta"`
}

type FutureResponse struct {
	FutureResult
	Meta Meta `json:"_meta"`
}
