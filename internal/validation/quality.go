package validation

import (
	"regexp"
	"strings"

	"github.com/jonathan/ui-builder/internal/types"
)

var (
	importRe      = regexp.MustCompile(`(?m)^[ \t]*import\s+([^'";]+?)\s+from\s+['"][^'"]+['"];?[ \t]*$`)
	consoleCallRe = regexp.MustCompile(`\bconsole\.(log|warn|error|debug|info|trace)\s*\(`)
	magicPxRe     = regexp.MustCompile(`(?i)\b(width|height|margin|padding)\s*:\s*['"]?\d+px`)
	jsxReturnRe   = regexp.MustCompile(`return\s*\(?\s*<`)
	arrowJSXRe    = regexp.MustCompile(`=>\s*\(?\s*<`)
	functionRe    = regexp.MustCompile(`\bfunction\b|=>`)
	returnRe      = regexp.MustCompile(`\breturn\b`)
	identRe       = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

func checkQuality(d *document) ([]types.Issue, map[string]string) {
	var issues []types.Issue
	fixes := map[string]string{}

	if d.componentType == componentReact {
		issues = append(issues, d.unusedImports()...)
	}

	for _, call := range findConsoleCalls(d.src) {
		issues = append(issues, rulesByID[RuleDebugStatements].issue(d.lines.line(call.start), snippet(d.src, call.start, call.end)))
		if _, done := fixes[RuleDebugStatements]; !done {
			lineStart := strings.LastIndexByte(d.src[:call.start], '\n') + 1
			lineEnd := len(d.src)
			if nl := strings.IndexByte(d.src[call.end:], '\n'); nl >= 0 {
				lineEnd = call.end + nl
			}
			fixes[RuleDebugStatements] = strings.TrimSpace(d.src[lineStart:call.start] + d.src[call.end:lineEnd])
		}
	}

	for _, m := range magicPxRe.FindAllStringIndex(d.src, -1) {
		issues = append(issues, rulesByID[RuleMagicLiterals].issue(d.lines.line(m[0]), snippet(d.src, m[0], m[1])))
	}

	if d.componentType == componentReact && functionRe.MatchString(d.src) && returnRe.MatchString(d.src) &&
		!jsxReturnRe.MatchString(d.src) && !arrowJSXRe.MatchString(d.src) {
		issues = append(issues, rulesByID[RuleInvalidComponentReturn].issue(1, ""))
	}
	return issues, fixes
}

type span struct{ start, end int }

// findConsoleCalls locates console.* calls including a trailing semicolon.
func findConsoleCalls(src string) []span {
	var out []span
	for _, m := range consoleCallRe.FindAllStringIndex(src, -1) {
		end := skipParens(src, m[1]-1)
		if end < 0 {
			continue
		}
		if end < len(src) && src[end] == ';' {
			end++
		}
		out = append(out, span{m[0], end})
	}
	return out
}

// unusedImports reports import bindings never referenced outside import
// lines. React counts as used whenever the source contains JSX.
func (d *document) unusedImports() []types.Issue {
	matches := importRe.FindAllStringSubmatchIndex(d.src, -1)
	if len(matches) == 0 {
		return nil
	}
	body := importRe.ReplaceAllString(d.src, "")

	var issues []types.Issue
	for _, m := range matches {
		clause := d.src[m[2]:m[3]]
		for _, name := range importBindings(clause) {
			if name == "React" && len(d.tags) > 0 {
				continue
			}
			used := regexp.MustCompile(`(^|[^\w$.])` + regexp.QuoteMeta(name) + `([^\w$]|$)`).MatchString(body)
			if !used {
				issues = append(issues, rulesByID[RuleUnusedImports].issue(d.lines.line(m[0]), snippet(d.src, m[0], m[1])))
			}
		}
	}
	return issues
}

// importBindings lists the local names bound by an import clause such as
// `React, { useState, useEffect as effect }` or `* as utils`.
func importBindings(clause string) []string {
	var names []string
	rest := strings.TrimSpace(clause)
	if open := strings.IndexByte(rest, '{'); open >= 0 {
		closeIdx := strings.IndexByte(rest, '}')
		if closeIdx > open {
			for _, spec := range strings.Split(rest[open+1:closeIdx], ",") {
				spec = strings.TrimSpace(spec)
				if spec == "" {
					continue
				}
				if i := strings.Index(spec, " as "); i >= 0 {
					spec = strings.TrimSpace(spec[i+4:])
				}
				spec = strings.TrimPrefix(spec, "type ")
				if identRe.MatchString(spec) {
					names = append(names, spec)
				}
			}
			rest = rest[:open] + rest[closeIdx+1:]
		}
	}
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "* as ") {
			part = strings.TrimSpace(part[5:])
		}
		if identRe.MatchString(part) {
			names = append(names, part)
		}
	}
	return names
}
