package validation

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/ui-builder/internal/types"
)

var landmarkSelector = "header, nav, main, section, article, aside, footer, " +
	"[role=banner], [role=navigation], [role=main], [role=contentinfo], [role=region]"

func checkAccessibility(d *document) ([]types.Issue, map[string]string) {
	var issues []types.Issue
	fixes := map[string]string{}

	labelled := d.labelTargets()
	labelDepth := 0

	for i, t := range d.tags {
		if t.Is("label") {
			switch {
			case t.Closing:
				if labelDepth > 0 {
					labelDepth--
				}
			case !t.SelfClosing:
				labelDepth++
			}
			continue
		}
		if t.Closing {
			continue
		}
		raw := d.src[t.Start:t.End]
		line := d.lines.line(t.Start)

		switch {
		case t.Is("img"):
			if !t.Has("alt") {
				issues = append(issues, rulesByID[RuleAltTextMissing].issue(line, snippet(d.src, t.Start, t.End)))
				if _, ok := fixes[RuleAltTextMissing]; !ok {
					fixes[RuleAltTextMissing] = injectAttr(raw, `alt=""`)
				}
			}
		case t.Is("button"):
			if !d.buttonHasName(i) {
				issues = append(issues, rulesByID[RuleButtonWithoutText].issue(line, snippet(d.src, t.Start, t.End)))
			}
		case t.Is("input"), t.Is("select"), t.Is("textarea"):
			if needsLabel(t) && labelDepth == 0 && !t.Has("aria-label", "aria-labelledby") {
				if id, ok := t.Attr("id"); !ok || !labelled[id.Value] {
					issues = append(issues, rulesByID[RuleMissingAriaLabels].issue(line, snippet(d.src, t.Start, t.End)))
				}
			}
		case t.Is("div"), t.Is("span"):
			if t.Has("onClick") && !t.Has("role") {
				issues = append(issues, rulesByID[RuleNonSemanticInteractive].issue(line, snippet(d.src, t.Start, t.End)))
			}
		}
	}

	if len(d.tags) > 0 && d.html.Find(landmarkSelector).Length() == 0 {
		issues = append(issues, rulesByID[RuleSemanticHTML].issue(1, ""))
	}
	return issues, fixes
}

func needsLabel(t tag) bool {
	if !t.Is("input") {
		return true
	}
	typ, ok := t.Attr("type")
	if !ok {
		return true
	}
	switch strings.ToLower(typ.Value) {
	case "hidden", "submit", "button", "reset", "image":
		return false
	}
	return true
}

// buttonHasName reports whether a button exposes an accessible name.
func (d *document) buttonHasName(open int) bool {
	t := d.tags[open]
	if t.Has("aria-label", "aria-labelledby", "title") {
		return true
	}
	closeIdx := closingFor(d.tags, open)
	if closeIdx < 0 {
		return false
	}
	for k := open + 1; k < closeIdx; k++ {
		if d.tags[k].Is("img") {
			if alt, ok := d.tags[k].Attr("alt"); ok && strings.TrimSpace(alt.Value) != "" {
				return true
			}
		}
	}
	var text strings.Builder
	last := t.End
	for k := open + 1; k < closeIdx; k++ {
		text.WriteString(d.src[last:d.tags[k].Start])
		last = d.tags[k].End
	}
	if last < d.tags[closeIdx].Start {
		text.WriteString(d.src[last:d.tags[closeIdx].Start])
	}
	return strings.TrimSpace(text.String()) != ""
}

// labelTargets collects ids referenced by label for/htmlFor attributes.
// The HTML parser lowercases attribute names, so htmlFor becomes htmlfor.
func (d *document) labelTargets() map[string]bool {
	ids := map[string]bool{}
	d.html.Find("label[for], label[htmlfor]").Each(func(_ int, s *goquery.Selection) {
		for _, key := range []string{"for", "htmlfor"} {
			if v, ok := s.Attr(key); ok && v != "" {
				ids[strings.Trim(v, `{}"'`)] = true
			}
		}
	})
	return ids
}
