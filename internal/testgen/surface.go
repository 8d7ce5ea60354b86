// Package testgen synthesizes Jest test suites for generated components and
// estimates their coverage from the component's static structure.
package testgen

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/ui-builder/internal/apperr"
)

// Category groups testable elements of a component.
type Category string

const (
	CategoryProps        Category = "props"
	CategoryState        Category = "state"
	CategoryHandlers     Category = "handlers"
	CategoryMethods      Category = "methods"
	CategoryConditionals Category = "conditionals"
	CategoryLoops        Category = "loops"
)

// Categories lists element categories in reporting order.
var Categories = []Category{
	CategoryProps, CategoryState, CategoryHandlers, CategoryMethods, CategoryConditionals, CategoryLoops,
}

// Element is one testable piece of a component's surface.
type Element struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Line     int      `json:"line"`
}

func (e Element) key() string { return string(e.Category) + ":" + e.Name }

// Surface is the testable surface of a component.
type Surface struct {
	Component  string    `json:"component"`
	Elements   []Element `json:"elements"`
	HasEffects bool      `json:"has_effects"`
}

// Total is the number of enumerated elements.
func (s *Surface) Total() int { return len(s.Elements) }

// In returns the elements of one category in source order.
func (s *Surface) In(c Category) []Element {
	var out []Element
	for _, e := range s.Elements {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of elements per category.
func (s *Surface) Counts() map[string]int {
	out := make(map[string]int, len(Categories))
	for _, c := range Categories {
		out[string(c)] = 0
	}
	for _, e := range s.Elements {
		out[string(e.Category)]++
	}
	return out
}

var (
	componentNameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	exportDefaultRe = regexp.MustCompile(`export\s+default\s+(?:function\s+)?([A-Z][\w$]*)`)
	componentDeclRe = regexp.MustCompile(`(?:function\s+([A-Z][\w$]*)\s*\(|(?:const|let)\s+([A-Z][\w$]*)\s*=)`)

	propsDotRe      = regexp.MustCompile(`\bprops\.([A-Za-z_$][\w$]*)`)
	propsFuncRe     = regexp.MustCompile(`function\s+[A-Z][\w$]*\s*\(\s*\{([^}]*)\}`)
	propsArrowRe    = regexp.MustCompile(`(?:const|let)\s+[A-Z][\w$]*\s*=\s*(?:React\.memo\(\s*|memo\(\s*)?\(\s*\{([^}]*)\}\s*\)\s*=>`)
	stateRe         = regexp.MustCompile(`const\s*\[\s*([A-Za-z_$][\w$]*)\s*,\s*(?:set[A-Z][\w$]*|dispatch)\s*\]\s*=\s*(?:React\.)?use(?:State|Reducer)\b`)
	handlerRe       = regexp.MustCompile(`\b(on[A-Z][A-Za-z]*)\b`)
	arrowMethodRe   = regexp.MustCompile(`(?:const|let)\s+([a-z_$][\w$]*)\s*=\s*(?:useCallback\(\s*)?(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
	innerFunctionRe = regexp.MustCompile(`function\s+([a-z_$][\w$]*)\s*\(`)
	conditionalRe   = regexp.MustCompile(`\bif\s*\(|&&|\s\?\s`)
	loopRe          = regexp.MustCompile(`\.map\s*\(|\.forEach\s*\(|\bfor\s*\(|\bwhile\s*\(`)
	identifierRe    = regexp.MustCompile(`^[A-Za-z_$][\w$]*`)
)

// Analyze enumerates the testable surface of a component: props, state,
// event handlers, helper functions, conditional branches and loops.
func Analyze(source, componentName string) (*Surface, error) {
	if strings.TrimSpace(source) == "" {
		return nil, apperr.InvalidInput("component source is empty")
	}
	if !strings.Contains(source, "<") && !strings.Contains(source, "function") && !strings.Contains(source, "=>") {
		return nil, apperr.InvalidInput("source does not contain a component")
	}
	if err := checkBalanced(source); err != nil {
		return nil, err
	}
	name, err := resolveComponentName(source, componentName)
	if err != nil {
		return nil, err
	}

	lines := newLines(source)
	s := &Surface{Component: name, HasEffects: strings.Contains(source, "useEffect")}
	seen := map[string]bool{}
	add := func(c Category, n string, offset int) {
		e := Element{Category: c, Name: n, Line: lines.at(offset)}
		if seen[e.key()] {
			return
		}
		seen[e.key()] = true
		s.Elements = append(s.Elements, e)
	}

	// Destructured parameters come first so their declaration line wins.
	for _, re := range []*regexp.Regexp{propsFuncRe, propsArrowRe} {
		for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
			for _, p := range destructured(source[m[2]:m[3]]) {
				if handlerRe.MatchString(p) && strings.HasPrefix(p, "on") {
					add(CategoryHandlers, p, m[2])
					continue
				}
				add(CategoryProps, p, m[2])
			}
		}
	}
	for _, m := range propsDotRe.FindAllStringSubmatchIndex(source, -1) {
		p := source[m[2]:m[3]]
		if strings.HasPrefix(p, "on") && handlerRe.MatchString(p) {
			add(CategoryHandlers, p, m[0])
			continue
		}
		add(CategoryProps, p, m[0])
	}
	for _, m := range stateRe.FindAllStringSubmatchIndex(source, -1) {
		add(CategoryState, source[m[2]:m[3]], m[0])
	}
	for _, m := range handlerRe.FindAllStringSubmatchIndex(source, -1) {
		add(CategoryHandlers, source[m[2]:m[3]], m[0])
	}
	for _, re := range []*regexp.Regexp{arrowMethodRe, innerFunctionRe} {
		for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
			add(CategoryMethods, source[m[2]:m[3]], m[0])
		}
	}
	for i, m := range conditionalRe.FindAllStringIndex(source, -1) {
		add(CategoryConditionals, "branch "+strconv.Itoa(i+1), m[0])
	}
	for i, m := range loopRe.FindAllStringIndex(source, -1) {
		add(CategoryLoops, "loop "+strconv.Itoa(i+1), m[0])
	}

	order := map[Category]int{}
	for i, c := range Categories {
		order[c] = i
	}
	sort.SliceStable(s.Elements, func(i, j int) bool {
		return order[s.Elements[i].Category] < order[s.Elements[j].Category]
	})
	return s, nil
}

func resolveComponentName(source, requested string) (string, error) {
	if requested != "" {
		if !componentNameRe.MatchString(requested) {
			return "", apperr.InvalidInput("component name %q must be PascalCase", requested)
		}
		return requested, nil
	}
	if m := exportDefaultRe.FindStringSubmatch(source); m != nil {
		return m[1], nil
	}
	if m := componentDeclRe.FindStringSubmatch(source); m != nil {
		if m[1] != "" {
			return m[1], nil
		}
		return m[2], nil
	}
	return "Component", nil
}

// destructured returns the bound names of a destructuring pattern body such
// as `title, items = [], onSelect: select`.
func destructured(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "..."))
		if n := identifierRe.FindString(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// checkBalanced verifies that braces, brackets and parentheses pair up
// outside comments and single-line string literals.
func checkBalanced(src string) error {
	var stack []byte
	lines := newLines(src)
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(src)
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return apperr.InvalidInput("unterminated comment at line %d", lines.at(i))
			}
			i += end + 3
		case c == '"' || c == '\'' || c == '`':
			// Quotes without a partner on the same line are JSX text.
			rest := src[i+1:]
			if c != '`' {
				if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
					rest = rest[:nl]
				}
			}
			if end := strings.IndexByte(rest, c); end >= 0 {
				i += end + 1
			}
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return apperr.InvalidInput("unbalanced %q at line %d", string(c), lines.at(i))
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return apperr.InvalidInput("unclosed %q", string(stack[len(stack)-1]))
	}
	return nil
}

type lineStarts []int

func newLines(src string) lineStarts {
	out := lineStarts{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			out = append(out, i+1)
		}
	}
	return out
}

func (l lineStarts) at(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
