package types

// TestType is a kind of generated test.
type TestType string

const (
	TestTypeUnit          TestType = "unit"
	TestTypeIntegration   TestType = "integration"
	TestTypeAccessibility TestType = "accessibility"
)

// AllTestTypes lists test types in generation order.
var AllTestTypes = []TestType{TestTypeUnit, TestTypeIntegration, TestTypeAccessibility}

// CoverageLabelEstimated marks a coverage figure as heuristic.
const CoverageLabelEstimated = "estimated"

// TestFile is one generated test file.
type TestFile struct {
	Filename  string   `json:"filename"`
	Content   string   `json:"content"`
	TestType  TestType `json:"test_type"`
	TestCount int      `json:"test_count"`
}

// TestSuiteReport is the artifact of the generate_tests stage.
// CoverageEstimate is derived from static structure, never measured.
type TestSuiteReport struct {
	Files            []TestFile     `json:"files"`
	TestCount        int            `json:"test_count"`
	CoverageEstimate float64        `json:"coverage_estimate"`
	CoverageLabel    string         `json:"coverage_label"`
	CoverageTarget   float64        `json:"coverage_target"`
	TargetMet        bool           `json:"target_met"`
	Augmented        bool           `json:"augmented"`
	Surface          map[string]int `json:"surface"`
	Covered          map[string]int `json:"covered"`
	Suggestions      []string       `json:"suggestions,omitempty"`
}
