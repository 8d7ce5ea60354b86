package validation

import (
	"strings"
	"testing"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(r *types.ValidationReport) []string {
	var out []string
	for _, is := range r.Issues {
		out = append(out, is.Rule)
	}
	return out
}

func countRule(r *types.ValidationReport, id string) int {
	n := 0
	for _, is := range r.Issues {
		if is.Rule == id {
			n++
		}
	}
	return n
}

const heroSource = `export default function Hero() {
  return (
    <main>
      <img src="/hero.webp" loading="lazy" />
    </main>
  );
}`

func TestValidate_MissingAltProducesIssueAndFix(t *testing.T) {
	report, err := Validate(heroSource, "react")
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, types.CategoryAccessibility, issue.Category)
	assert.Equal(t, RuleAltTextMissing, issue.Rule)
	assert.Equal(t, types.SeverityHigh, issue.Severity)
	assert.Equal(t, 4, issue.Line)

	assert.Equal(t, `<img src="/hero.webp" loading="lazy" alt="" />`, report.AutoFixes[RuleAltTextMissing])
	assert.Equal(t, 8.0, report.CategoryScores.Accessibility)
	assert.Equal(t, 10.0, report.CategoryScores.Performance)
	assert.Equal(t, 10.0, report.CategoryScores.CodeQuality)
	assert.Equal(t, 9.2, report.OverallScore())
}

func TestValidate_CleanSource(t *testing.T) {
	src := `export default function Hero() {
  return (
    <main>
      <img src="/hero.webp" alt="Hero" loading="lazy" />
      <button type="button">Start</button>
    </main>
  );
}`
	report, err := Validate(src, "")
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Nil(t, report.AutoFixes)
	assert.Equal(t, 10.0, report.OverallScore())
}

func TestValidate_PoorScoreIsNotAnError(t *testing.T) {
	src := "<div>" + strings.Repeat(`<img src="/a.png" style="width: 10px">`, 8) + "</div>"
	report, err := Validate(src, "html")
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.CategoryScores.Accessibility)
	assert.Equal(t, 0.0, report.CategoryScores.Performance)
	assert.Equal(t, 2.0, report.CategoryScores.CodeQuality)
	assert.Equal(t, 0.6, report.OverallScore())
}

func TestValidate_InvalidInput(t *testing.T) {
	cases := map[string]struct {
		source        string
		componentType string
	}{
		"empty":            {"", "react"},
		"whitespace":       {"  \n\t ", "react"},
		"plain prose":      {"just some words about a page", "react"},
		"unsupported type": {"<div></div>", "vue"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Validate(tc.source, tc.componentType)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		})
	}
}

func TestValidate_OverallScoreFormula(t *testing.T) {
	sources := []string{
		heroSource,
		`<div onClick={go}><img src="/x.jpg" /></div>`,
		"function A() {\n  console.log('x');\n  return null;\n}",
		`<form><input /><select></select><button></button></form>`,
		`<section style="margin: 4px; padding: 8px"><span onClick={f}>x</span></section>`,
	}
	for _, src := range sources {
		report, err := Validate(src, "react")
		require.NoError(t, err)
		s := report.CategoryScores
		want := types.Round1(0.4*s.Accessibility + 0.3*s.Performance + 0.3*s.CodeQuality)
		assert.Equal(t, want, report.OverallScore(), src)
		assert.GreaterOrEqual(t, report.OverallScore(), 0.0)
		assert.LessOrEqual(t, report.OverallScore(), 10.0)
	}
}

func TestValidate_AccessibilityRules(t *testing.T) {
	src := `<main>
  <button onClick={close}><svg /></button>
  <button aria-label="Close">x</button>
  <button>Save</button>
  <label htmlFor="email">Email</label>
  <input id="email" />
  <label>Name <input /></label>
  <input type="hidden" />
  <input placeholder="search" />
  <div onClick={x}>a</div>
  <div onClick={x} role="button">b</div>
</main>`
	report, err := Validate(src, "react")
	require.NoError(t, err)
	assert.Equal(t, 1, countRule(report, RuleButtonWithoutText))
	assert.Equal(t, 1, countRule(report, RuleMissingAriaLabels))
	assert.Equal(t, 1, countRule(report, RuleNonSemanticInteractive))
	assert.Equal(t, 0, countRule(report, RuleSemanticHTML))
}

func TestValidate_SemanticHTMLWithoutLandmark(t *testing.T) {
	report, err := Validate(`<div><p>Hello</p></div>`, "html")
	require.NoError(t, err)
	assert.Equal(t, []string{RuleSemanticHTML}, ruleIDs(report))
	assert.Equal(t, 9.0, report.CategoryScores.Accessibility)
}

func TestValidate_PerformanceRules(t *testing.T) {
	src := `import React from 'react';
function Card() {
  return (
    <main>
      <img src="/hero.png" alt="hero" loading="lazy" />
      <img src={hero} alt="dynamic" />
      <div style={{color: 'red', fontSize: 12}}>x</div>
    </main>
  );
}
export default Card;`
	report, err := Validate(src, "react")
	require.NoError(t, err)
	assert.Equal(t, 1, countRule(report, RuleUnoptimizedImages))
	assert.Equal(t, 1, countRule(report, RuleMissingLazyLoading))
	assert.Equal(t, 1, countRule(report, RuleInlineStyles))
	assert.Equal(t, 1, countRule(report, RuleMissingMemoization))
	assert.Equal(t, 0, countRule(report, RuleUnusedImports))

	assert.Equal(t, `<div className="ui-inline-1">`, report.AutoFixes[RuleInlineStyles])
	assert.Equal(t, `<img src={hero} alt="dynamic" loading="lazy" />`, report.AutoFixes[RuleMissingLazyLoading])
	// medium 1.0 + low 0.5 + low 0.5 + low 0.5
	assert.Equal(t, 7.5, report.CategoryScores.Performance)
}

func TestValidate_QualityRules(t *testing.T) {
	src := `import React, { useState } from 'react';
import { helper } from './util';

export default function Counter() {
  const [count, setCount] = useState(0);
  console.log("render", count);
  return <main style="width: 300px">{count}</main>;
}`
	report, err := Validate(src, "react")
	require.NoError(t, err)
	assert.Equal(t, 1, countRule(report, RuleUnusedImports))
	assert.Equal(t, 1, countRule(report, RuleDebugStatements))
	assert.Equal(t, 1, countRule(report, RuleMagicLiterals))
	assert.Equal(t, 0, countRule(report, RuleInvalidComponentReturn))
	assert.Equal(t, "", report.AutoFixes[RuleDebugStatements])

	for _, is := range report.Issues {
		if is.Rule == RuleUnusedImports {
			assert.Equal(t, 2, is.Line)
		}
	}
}

func TestValidate_InvalidComponentReturn(t *testing.T) {
	report, err := Validate("function Broken() {\n  return 'hello';\n}", "react")
	require.NoError(t, err)
	assert.Contains(t, ruleIDs(report), RuleInvalidComponentReturn)
	assert.Equal(t, 8.0, report.CategoryScores.CodeQuality)

	report, err = Validate("const Ok = () => <main>ok</main>;", "react")
	require.NoError(t, err)
	assert.NotContains(t, ruleIDs(report), RuleInvalidComponentReturn)
}

func TestValidate_IssueOrderFollowsCategories(t *testing.T) {
	report, err := Validate("function A() {\n  console.log(1);\n  return <div><img src=\"/a.jpg\" /></div>;\n}", "react")
	require.NoError(t, err)

	order := map[types.Category]int{
		types.CategoryAccessibility: 0,
		types.CategoryPerformance:   1,
		types.CategoryCodeQuality:   2,
	}
	for i := 1; i < len(report.Issues); i++ {
		assert.LessOrEqual(t, order[report.Issues[i-1].Category], order[report.Issues[i].Category])
	}
}

func TestSuggestions(t *testing.T) {
	report, err := Validate(heroSource, "react")
	require.NoError(t, err)
	require.NotEmpty(t, report.Suggestions)
	assert.Contains(t, report.Suggestions[0], "Accessibility")
	assert.Contains(t, report.Suggestions[len(report.Suggestions)-1], RuleAltTextMissing)
}

func TestRules_Catalog(t *testing.T) {
	all := Rules()
	assert.Len(t, all, 13)
	fixable := 0
	for _, r := range all {
		if r.AutoFix {
			fixable++
			assert.Contains(t, FixableRules(), r.ID)
		}
	}
	assert.Equal(t, len(FixableRules()), fixable)
}
