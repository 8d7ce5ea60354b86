package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/ui-builder/internal/types"
)

var (
	rasterImageRe    = regexp.MustCompile(`(?i)\.(jpe?g|png|gif)(\?[^"'\s]*)?$`)
	functionDeclRe   = regexp.MustCompile(`function\s+\w+\s*\(|const\s+[A-Z]\w*\s*=\s*\(`)
	memoizationRe    = regexp.MustCompile(`React\.memo|\bmemo\(|useMemo|useCallback`)
	styleObjectPairs = regexp.MustCompile(`^\s*(?:([A-Za-z_$][\w$]*)|["']([\w-]+)["'])\s*:\s*(?:"([^"]*)"|'([^']*)'|(-?\d+(?:\.\d+)?))\s*$`)
)

// unitless CSS properties that take plain numbers in React style objects.
var unitless = map[string]bool{
	"opacity": true, "z-index": true, "font-weight": true, "line-height": true,
	"flex": true, "flex-grow": true, "flex-shrink": true, "order": true,
}

func checkPerformance(d *document) ([]types.Issue, map[string]string) {
	var issues []types.Issue
	fixes := map[string]string{}
	styleIdx := 0

	for _, t := range d.tags {
		if t.Closing {
			continue
		}
		raw := d.src[t.Start:t.End]
		line := d.lines.line(t.Start)

		if style, ok := t.Attr("style"); ok {
			styleIdx++
			issues = append(issues, rulesByID[RuleInlineStyles].issue(line, snippet(d.src, style.Start, style.End)))
			if _, done := fixes[RuleInlineStyles]; !done {
				if fixed, _, ok := extractStyle(d.src, t, style, styleIdx, d.componentType); ok {
					fixes[RuleInlineStyles] = fixed
				}
			}
		}

		if !t.Is("img") {
			continue
		}
		if src, ok := t.Attr("src"); ok && isLiteral(src) && rasterImageRe.MatchString(strings.Trim(src.Value, "\"'")) {
			issues = append(issues, rulesByID[RuleUnoptimizedImages].issue(line, snippet(d.src, t.Start, t.End)))
		}
		if !t.Has("loading") {
			issues = append(issues, rulesByID[RuleMissingLazyLoading].issue(line, snippet(d.src, t.Start, t.End)))
			if _, done := fixes[RuleMissingLazyLoading]; !done {
				fixes[RuleMissingLazyLoading] = injectAttr(raw, `loading="lazy"`)
			}
		}
	}

	if d.componentType == componentReact && strings.Contains(d.src, "React") &&
		functionDeclRe.MatchString(d.src) && !memoizationRe.MatchString(d.src) {
		issues = append(issues, rulesByID[RuleMissingMemoization].issue(1, ""))
	}
	return issues, fixes
}

func isLiteral(a attr) bool {
	return strings.HasPrefix(a.Raw, `"`) || strings.HasPrefix(a.Raw, `'`) ||
		strings.HasPrefix(a.Value, `"`) || strings.HasPrefix(a.Value, `'`)
}

// extractStyle rewrites a tag so that its inline style becomes a class.
// It returns the rewritten tag and the CSS rule. Tags that already carry a
// class, and style objects with non-literal values, have no mechanical fix.
func extractStyle(src string, t tag, style attr, n int, componentType string) (string, string, bool) {
	if t.Has("class", "className") {
		return "", "", false
	}
	var decls []string
	if strings.HasPrefix(style.Raw, "{") {
		var ok bool
		decls, ok = parseStyleObject(style.Value)
		if !ok {
			return "", "", false
		}
	} else {
		for _, part := range strings.Split(style.Value, ";") {
			if p := strings.TrimSpace(part); p != "" {
				decls = append(decls, p)
			}
		}
	}
	if len(decls) == 0 {
		return "", "", false
	}

	className := fmt.Sprintf("ui-inline-%d", n)
	classAttr := "className"
	if componentType == componentHTML {
		classAttr = "class"
	}
	fixed := src[t.Start:style.Start] + fmt.Sprintf(`%s="%s"`, classAttr, className) + src[style.End:t.End]
	rule := fmt.Sprintf(".%s { %s; }", className, strings.Join(decls, "; "))
	return fixed, rule, true
}

// parseStyleObject converts a literal React style object such as
// {color: 'red', fontSize: 12} into CSS declarations.
func parseStyleObject(expr string) ([]string, bool) {
	body := strings.TrimSpace(expr)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return nil, false
	}
	body = strings.TrimSpace(body[1 : len(body)-1])
	if body == "" {
		return nil, false
	}
	var decls []string
	for _, pair := range strings.Split(body, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		m := styleObjectPairs.FindStringSubmatch(pair)
		if m == nil {
			return nil, false
		}
		prop := m[2]
		if prop == "" {
			prop = kebab(m[1])
		}
		value := m[3] + m[4]
		if m[5] != "" {
			value = m[5]
			if !unitless[prop] && m[5] != "0" {
				value += "px"
			}
		}
		decls = append(decls, prop+": "+value)
	}
	return decls, len(decls) > 0
}

func kebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
