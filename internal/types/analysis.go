// Package types provides the artifact documents produced by pipeline stages
// and returned to callers.
//
//nolint:revive // types is a standard Go package name pattern
package types

// UI types recognized by prompt analysis.
const (
	UITypeLandingPage = "landing_page"
	UITypeDashboard   = "dashboard"
	UITypeForm        = "form"
	UITypeGeneral     = "general"
)

// PromptAnalysis is the artifact of the analyze stage.
type PromptAnalysis struct {
	UIType      string   `json:"ui_type"`
	Components  []string `json:"components"`
	Layout      string   `json:"layout"`
	Theme       string   `json:"theme"`
	ColorScheme string   `json:"color_scheme"`
	Keywords    []string `json:"keywords"`
	Complexity  string   `json:"complexity"`
}

// WireframeSection is one block of a wireframe, top to bottom.
type WireframeSection struct {
	Name        string `json:"name"`
	Component   string `json:"component"`
	Description string `json:"description,omitempty"`
}

// Wireframe is the artifact of the design stage.
type Wireframe struct {
	ReferenceURI string             `json:"reference_uri"`
	Layout       string             `json:"layout"`
	Theme        string             `json:"theme"`
	ColorScheme  string             `json:"color_scheme"`
	Sections     []WireframeSection `json:"sections"`
}

// GeneratedCode is the artifact of the generate_code stage.
type GeneratedCode struct {
	ComponentName string `json:"component_name"`
	ComponentType string `json:"component_type"`
	Source        string `json:"source"`
	Styles        string `json:"styles,omitempty"`
	Generator     string `json:"generator"`
}
