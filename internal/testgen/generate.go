package testgen

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var fileTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	// DefaultCoverageTarget applies when the caller sets none.
	DefaultCoverageTarget = 0.9
	MinCoverageTarget     = 0.6

	baseCoverage         = 0.6
	coverageSpan         = 0.35
	emptySurfaceCoverage = 0.95

	// augmentCategories is how many of the least covered categories the
	// augmentation pass fills in.
	augmentCategories = 2
)

// firstPass lists the categories every requested test type covers element
// by element. Helper methods are left to the augmentation pass.
var firstPass = []Category{
	CategoryProps, CategoryState, CategoryHandlers, CategoryConditionals, CategoryLoops,
}

var testCallRe = regexp.MustCompile(`(?m)^\s*(?:it|test)\s*\(`)

// Options controls test generation.
type Options struct {
	ComponentName  string
	TestTypes      []types.TestType
	CoverageTarget float64
}

// TypeFactor scales the estimate by how many kinds of tests were produced.
func TypeFactor(typeCount int) float64 {
	switch typeCount {
	case 1:
		return 0.85
	case 2:
		return 0.95
	default:
		return 1.0
	}
}

// Estimate is the heuristic coverage figure for covered of total elements.
// It is non-decreasing in covered.
func Estimate(total, covered int, factor float64) float64 {
	if total == 0 {
		return types.Round2(emptySurfaceCoverage * factor)
	}
	ratio := math.Min(float64(covered)/float64(total), 1)
	return types.Round2((baseCoverage + coverageSpan*ratio) * factor)
}

type testCase struct {
	Title string
	Body  string
	Async bool
}

type fileData struct {
	Component  string
	HasEffects bool
	Cases      []testCase
}

// suite is the working plan of a test suite before rendering.
type suite struct {
	surface   *Surface
	testTypes []types.TestType
	cases     map[types.TestType][]testCase
	covered   map[string]bool
	augmented bool
}

func newSuite(s *Surface, testTypes []types.TestType) *suite {
	st := &suite{
		surface:   s,
		testTypes: testTypes,
		cases:     map[types.TestType][]testCase{},
		covered:   map[string]bool{},
	}
	for _, tt := range testTypes {
		for _, c := range firstPass {
			for _, e := range s.In(c) {
				st.cases[tt] = append(st.cases[tt], caseFor(tt, s.Component, e))
				st.covered[e.key()] = true
			}
		}
	}
	return st
}

func (st *suite) coveredIn(c Category) int {
	n := 0
	for _, e := range st.surface.In(c) {
		if st.covered[e.key()] {
			n++
		}
	}
	return n
}

func (st *suite) estimate() float64 {
	return Estimate(st.surface.Total(), len(st.covered), TypeFactor(len(st.testTypes)))
}

// augment adds tests for every uncovered element of the least covered
// categories to the first file. It reports whether anything was added.
func (st *suite) augment() bool {
	type gap struct {
		cat   Category
		ratio float64
	}
	var gaps []gap
	for _, c := range Categories {
		total := len(st.surface.In(c))
		if total == 0 || st.coveredIn(c) == total {
			continue
		}
		gaps = append(gaps, gap{c, float64(st.coveredIn(c)) / float64(total)})
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].ratio < gaps[j].ratio })
	if len(gaps) > augmentCategories {
		gaps = gaps[:augmentCategories]
	}

	first := st.testTypes[0]
	added := false
	for _, g := range gaps {
		for _, e := range st.surface.In(g.cat) {
			if st.covered[e.key()] {
				continue
			}
			st.cases[first] = append(st.cases[first], caseFor(types.TestTypeUnit, st.surface.Component, e))
			st.covered[e.key()] = true
			added = true
		}
	}
	st.augmented = added
	return added
}

func (st *suite) render() ([]types.TestFile, error) {
	files := make([]types.TestFile, 0, len(st.testTypes))
	for _, tt := range st.testTypes {
		var buf bytes.Buffer
		data := fileData{
			Component:  st.surface.Component,
			HasEffects: st.surface.HasEffects,
			Cases:      st.cases[tt],
		}
		if err := fileTemplates.ExecuteTemplate(&buf, string(tt)+".tmpl", data); err != nil {
			return nil, apperr.Internal(err, "failed to render %s tests", tt)
		}
		content := buf.String()
		files = append(files, types.TestFile{
			Filename:  fmt.Sprintf("%s.%s.test.jsx", st.surface.Component, tt),
			Content:   content,
			TestType:  tt,
			TestCount: len(testCallRe.FindAllStringIndex(content, -1)),
		})
	}
	return files, nil
}

// Generate produces a test suite for source. When the first estimate falls
// short of the target, one augmentation pass adds tests for the least
// covered categories. A final estimate below target is reported with
// suggestions rather than as an error.
func Generate(source string, opts Options) (*types.TestSuiteReport, error) {
	target := opts.CoverageTarget
	if target == 0 {
		target = DefaultCoverageTarget
	}
	if target < MinCoverageTarget || target > 1 {
		return nil, apperr.InvalidInput("coverage target %.2f outside [%.1f, 1.0]", target, MinCoverageTarget)
	}
	testTypes, err := normalizeTypes(opts.TestTypes)
	if err != nil {
		return nil, err
	}
	surface, err := Analyze(source, opts.ComponentName)
	if err != nil {
		return nil, err
	}

	st := newSuite(surface, testTypes)
	estimate := st.estimate()
	if estimate < target && st.augment() {
		estimate = st.estimate()
	}

	files, err := st.render()
	if err != nil {
		return nil, err
	}
	report := &types.TestSuiteReport{
		Files:            files,
		CoverageEstimate: estimate,
		CoverageLabel:    types.CoverageLabelEstimated,
		CoverageTarget:   target,
		TargetMet:        estimate >= target,
		Augmented:        st.augmented,
		Surface:          surface.Counts(),
		Covered:          map[string]int{},
	}
	for _, f := range files {
		report.TestCount += f.TestCount
	}
	for _, c := range Categories {
		report.Covered[string(c)] = st.coveredIn(c)
	}
	if !report.TargetMet {
		report.Suggestions = st.suggestions(estimate, target)
	}
	return report, nil
}

var categoryAdvice = map[Category]string{
	CategoryProps:        "Add tests for all component props with different values",
	CategoryState:        "Test state changes and their effects on rendering",
	CategoryHandlers:     "Test all event handlers with proper user interactions",
	CategoryMethods:      "Test helper functions, including their error paths",
	CategoryConditionals: "Test all conditional rendering paths",
	CategoryLoops:        "Test list rendering with empty, single and many items",
}

func (st *suite) suggestions(estimate, target float64) []string {
	out := []string{fmt.Sprintf("Estimated coverage %.2f is below the %.2f target", estimate, target)}
	for _, c := range Categories {
		if st.coveredIn(c) < len(st.surface.In(c)) {
			out = append(out, categoryAdvice[c])
		}
	}
	if len(st.testTypes) < len(types.AllTestTypes) {
		var missing []string
		for _, tt := range types.AllTestTypes {
			if !containsType(st.testTypes, tt) {
				missing = append(missing, string(tt))
			}
		}
		out = append(out, "Request "+strings.Join(missing, " and ")+" tests to raise the estimate")
	}
	return out
}

func normalizeTypes(requested []types.TestType) ([]types.TestType, error) {
	if len(requested) == 0 {
		return append([]types.TestType(nil), types.AllTestTypes...), nil
	}
	for _, tt := range requested {
		if !containsType(types.AllTestTypes, tt) {
			return nil, apperr.InvalidInput("unknown test type %q", tt)
		}
	}
	var out []types.TestType
	for _, tt := range types.AllTestTypes {
		if containsType(requested, tt) {
			out = append(out, tt)
		}
	}
	return out, nil
}

func containsType(list []types.TestType, tt types.TestType) bool {
	for _, t := range list {
		if t == tt {
			return true
		}
	}
	return false
}
