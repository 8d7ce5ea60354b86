package validation

import (
	"fmt"
	"strings"
)

// fixOrder is the order fixes are applied in. Each fix rescans the source.
var fixOrder = []string{RuleDebugStatements, RuleInlineStyles, RuleAltTextMissing, RuleMissingLazyLoading}

// FixResult is the outcome of ApplyFixes.
type FixResult struct {
	Source  string   `json:"source"`
	Styles  string   `json:"styles,omitempty"`
	Applied []string `json:"applied"`
}

// ApplyFixes applies the mechanical fixes for the given rules to every
// occurrence in source. An empty rule list applies all of them.
func ApplyFixes(source, componentType string, ruleIDs []string) (*FixResult, error) {
	if _, err := parse(source, componentType); err != nil {
		return nil, err
	}
	if componentType == "" {
		componentType = componentReact
	}
	wanted := map[string]bool{}
	for _, id := range ruleIDs {
		r, ok := rulesByID[id]
		if !ok {
			return nil, invalidSource("unknown rule %q", id)
		}
		if !r.AutoFix {
			return nil, invalidSource("rule %q has no mechanical fix", id)
		}
		wanted[id] = true
	}

	res := &FixResult{Source: source, Applied: []string{}}
	var styles []string
	for _, id := range fixOrder {
		if len(wanted) > 0 && !wanted[id] {
			continue
		}
		var changed bool
		switch id {
		case RuleDebugStatements:
			res.Source, changed = stripConsoleCalls(res.Source)
		case RuleInlineStyles:
			var css []string
			res.Source, css = extractAllStyles(res.Source, componentType)
			changed = len(css) > 0
			styles = append(styles, css...)
		case RuleAltTextMissing:
			res.Source, changed = injectWhereMissing(res.Source, "img", "alt", `alt=""`)
		case RuleMissingLazyLoading:
			res.Source, changed = injectWhereMissing(res.Source, "img", "loading", `loading="lazy"`)
		}
		if changed {
			res.Applied = append(res.Applied, id)
		}
	}
	res.Styles = strings.Join(styles, "\n")
	return res, nil
}

func stripConsoleCalls(src string) (string, bool) {
	calls := findConsoleCalls(src)
	if len(calls) == 0 {
		return src, false
	}
	var b strings.Builder
	last := 0
	for _, c := range calls {
		start, end := c.start, c.end
		lineStart := strings.LastIndexByte(src[:start], '\n') + 1
		lineEnd := len(src)
		if nl := strings.IndexByte(src[end:], '\n'); nl >= 0 {
			lineEnd = end + nl
		}
		// Drop the whole line when the call was the only thing on it.
		if strings.TrimSpace(src[lineStart:start]) == "" && strings.TrimSpace(src[end:lineEnd]) == "" {
			start = lineStart
			end = lineEnd
			if end < len(src) {
				end++
			}
		}
		if start < last {
			continue
		}
		b.WriteString(src[last:start])
		last = end
	}
	b.WriteString(src[last:])
	return b.String(), true
}

func injectWhereMissing(src, element, attrName, attribute string) (string, bool) {
	var b strings.Builder
	last := 0
	changed := false
	for _, t := range scanTags(src) {
		if t.Closing || !t.Is(element) || t.Has(attrName) {
			continue
		}
		b.WriteString(src[last:t.Start])
		b.WriteString(injectAttr(src[t.Start:t.End], attribute))
		last = t.End
		changed = true
	}
	b.WriteString(src[last:])
	return b.String(), changed
}

func extractAllStyles(src, componentType string) (string, []string) {
	var b strings.Builder
	var css []string
	last := 0
	n := 0
	for _, t := range scanTags(src) {
		style, ok := t.Attr("style")
		if t.Closing || !ok {
			continue
		}
		n++
		fixed, rule, ok := extractStyle(src, t, style, n, componentType)
		if !ok {
			continue
		}
		b.WriteString(src[last:t.Start])
		b.WriteString(fixed)
		last = t.End
		css = append(css, rule)
	}
	b.WriteString(src[last:])
	return b.String(), css
}

// FixableRules lists rules that have a mechanical fix.
func FixableRules() []string {
	out := make([]string, 0, len(fixOrder))
	out = append(out, fixOrder...)
	return out
}

func (r *FixResult) String() string {
	return fmt.Sprintf("applied %d fixes: %s", len(r.Applied), strings.Join(r.Applied, ", "))
}
