package validation

import "github.com/jonathan/ui-builder/internal/types"

// Rule identifiers.
const (
	RuleAltTextMissing         = "alt_text_missing"
	RuleButtonWithoutText      = "button_without_text"
	RuleMissingAriaLabels      = "missing_aria_labels"
	RuleNonSemanticInteractive = "non_semantic_interactive"
	RuleSemanticHTML           = "semantic_html"

	RuleInlineStyles       = "inline_styles"
	RuleUnoptimizedImages  = "unoptimized_images"
	RuleMissingLazyLoading = "missing_lazy_loading"
	RuleMissingMemoization = "missing_memoization"

	RuleUnusedImports          = "unused_imports"
	RuleDebugStatements        = "debug_statements"
	RuleMagicLiterals          = "magic_literals"
	RuleInvalidComponentReturn = "invalid_component_return"
)

// Rule describes one check of the battery.
type Rule struct {
	ID       string         `json:"id"`
	Category types.Category `json:"category"`
	Severity types.Severity `json:"severity"`
	Message  string         `json:"message"`
	AutoFix  bool           `json:"auto_fix"`
}

var rules = []Rule{
	{RuleAltTextMissing, types.CategoryAccessibility, types.SeverityHigh, "Images should have alt text for accessibility", true},
	{RuleButtonWithoutText, types.CategoryAccessibility, types.SeverityHigh, "Buttons should have descriptive text or an aria-label", false},
	{RuleMissingAriaLabels, types.CategoryAccessibility, types.SeverityMedium, "Form inputs should have a label, aria-label or aria-labelledby", false},
	{RuleNonSemanticInteractive, types.CategoryAccessibility, types.SeverityMedium, "Click handlers on div or span need a role, or use a button", false},
	{RuleSemanticHTML, types.CategoryAccessibility, types.SeverityMedium, "Use semantic HTML landmarks such as header, nav, main or footer", false},

	{RuleInlineStyles, types.CategoryPerformance, types.SeverityLow, "Avoid inline styles for better performance and maintainability", true},
	{RuleUnoptimizedImages, types.CategoryPerformance, types.SeverityMedium, "Consider optimized image formats such as WebP or AVIF", false},
	{RuleMissingLazyLoading, types.CategoryPerformance, types.SeverityLow, "Consider adding lazy loading for images", true},
	{RuleMissingMemoization, types.CategoryPerformance, types.SeverityLow, "Consider React.memo, useMemo or useCallback for expensive renders", false},

	{RuleUnusedImports, types.CategoryCodeQuality, types.SeverityLow, "Remove unused imports", false},
	{RuleDebugStatements, types.CategoryCodeQuality, types.SeverityLow, "Remove console statements in production code", true},
	{RuleMagicLiterals, types.CategoryCodeQuality, types.SeverityMedium, "Consider responsive units instead of fixed pixel values", false},
	{RuleInvalidComponentReturn, types.CategoryCodeQuality, types.SeverityHigh, "Components should return JSX", false},
}

var rulesByID = func() map[string]Rule {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.ID] = r
	}
	return m
}()

// Rules returns the full battery in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// penalty per severity and category.
func penalty(c types.Category, s types.Severity) float64 {
	switch s {
	case types.SeverityHigh:
		if c == types.CategoryPerformance {
			return 1.5
		}
		return 2.0
	case types.SeverityMedium:
		return 1.0
	default:
		return 0.5
	}
}

func (r Rule) issue(line int, snip string) types.Issue {
	return types.Issue{
		Category: r.Category,
		Rule:     r.ID,
		Message:  r.Message,
		Severity: r.Severity,
		Line:     line,
		Snippet:  snip,
	}
}
