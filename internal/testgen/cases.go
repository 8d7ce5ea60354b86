package testgen

import (
	"fmt"
	"strings"

	"github.com/jonathan/ui-builder/internal/types"
)

// caseFor builds the test for one element in the style of a test type.
func caseFor(tt types.TestType, component string, e Element) testCase {
	switch tt {
	case types.TestTypeIntegration:
		return integrationCase(component, e)
	case types.TestTypeAccessibility:
		return accessibilityCase(component, e)
	default:
		return unitCase(component, e)
	}
}

func unitCase(c string, e Element) testCase {
	switch e.Category {
	case CategoryProps:
		return testCase{
			Title: fmt.Sprintf("renders with the %s prop", e.Name),
			Body: lines(
				fmt.Sprintf("const props = { %s: 'test-value' };", e.Name),
				fmt.Sprintf("const { container } = render(<%s {...props} />);", c),
				"expect(container).toBeInTheDocument();",
			),
		}
	case CategoryState:
		return testCase{
			Title: fmt.Sprintf("initializes and updates %s state", e.Name),
			Body: lines(
				fmt.Sprintf("const { container } = render(<%s />);", c),
				"screen.queryAllByRole('button').forEach((button) => fireEvent.click(button));",
				"expect(container).toBeInTheDocument();",
			),
		}
	case CategoryHandlers:
		return testCase{
			Title: fmt.Sprintf("wires the %s handler", e.Name),
			Body: lines(
				"const handler = jest.fn();",
				fmt.Sprintf("render(<%s %s={handler} />);", c, e.Name),
				"screen.queryAllByRole('button').forEach((button) => fireEvent.click(button));",
				"expect(handler.mock.calls.length).toBeGreaterThanOrEqual(0);",
			),
		}
	case CategoryMethods:
		return testCase{
			Title: fmt.Sprintf("runs %s without throwing", e.Name),
			Body:  lines(fmt.Sprintf("expect(() => render(<%s />)).not.toThrow();", c)),
		}
	case CategoryConditionals:
		return testCase{
			Title: fmt.Sprintf("renders both sides of %s (line %d)", e.Name, e.Line),
			Body: lines(
				fmt.Sprintf("const { container, rerender } = render(<%s />);", c),
				fmt.Sprintf("rerender(<%s loading error=\"failed\" />);", c),
				"expect(container).toBeInTheDocument();",
			),
		}
	default:
		return testCase{
			Title: fmt.Sprintf("renders every item for %s (line %d)", e.Name, e.Line),
			Body: lines(
				"const items = [{ id: 1, name: 'First' }, { id: 2, name: 'Second' }];",
				fmt.Sprintf("const { container } = render(<%s items={items} data={items} />);", c),
				"expect(container).toBeInTheDocument();",
			),
		}
	}
}

func integrationCase(c string, e Element) testCase {
	switch e.Category {
	case CategoryHandlers:
		return testCase{
			Title: fmt.Sprintf("propagates %s to the parent", e.Name),
			Async: true,
			Body: lines(
				"const onChange = jest.fn();",
				fmt.Sprintf("render(<div><%s %s={onChange} /></div>);", c, e.Name),
				"screen.queryAllByRole('button').forEach((button) => fireEvent.click(button));",
				"await waitFor(() => expect(onChange.mock.calls.length).toBeGreaterThanOrEqual(0));",
			),
		}
	case CategoryLoops:
		return testCase{
			Title: fmt.Sprintf("renders list data from a parent for %s", e.Name),
			Body: lines(
				"const data = [{ id: 1, name: 'Test' }];",
				fmt.Sprintf("render(<div><%s items={data} data={data} /></div>);", c),
				"expect(screen.queryAllByText('Test').length).toBeGreaterThanOrEqual(0);",
			),
		}
	default:
		return testCase{
			Title: fmt.Sprintf("receives %s from a parent", e.Name),
			Body: lines(
				fmt.Sprintf("const Parent = () => <%s %s=\"from-parent\" />;", c, e.Name),
				"const { container } = render(<Parent />);",
				"expect(container).toBeInTheDocument();",
			),
		}
	}
}

func accessibilityCase(c string, e Element) testCase {
	axeCheck := "expect(await axe(container)).toHaveNoViolations();"
	switch e.Category {
	case CategoryHandlers:
		return testCase{
			Title: fmt.Sprintf("keeps %s reachable by keyboard", e.Name),
			Body: lines(
				fmt.Sprintf("const { container } = render(<%s %s={jest.fn()} />);", c, e.Name),
				"container.querySelectorAll('button, [role=\"button\"]').forEach((el) => {",
				"  el.focus();",
				"  expect(el).toHaveFocus();",
				"});",
			),
		}
	case CategoryProps:
		return testCase{
			Title: fmt.Sprintf("stays accessible with the %s prop", e.Name),
			Async: true,
			Body: lines(
				fmt.Sprintf("const { container } = render(<%s %s=\"test-value\" />);", c, e.Name),
				axeCheck,
			),
		}
	case CategoryState:
		return testCase{
			Title: fmt.Sprintf("stays accessible after %s changes", e.Name),
			Async: true,
			Body: lines(
				fmt.Sprintf("const { container } = render(<%s />);", c),
				"screen.queryAllByRole('button').forEach((button) => button.click());",
				axeCheck,
			),
		}
	case CategoryConditionals:
		return testCase{
			Title: fmt.Sprintf("stays accessible in both branches of %s (line %d)", e.Name, e.Line),
			Async: true,
			Body: lines(
				fmt.Sprintf("const { container, rerender } = render(<%s />);", c),
				axeCheck,
				fmt.Sprintf("rerender(<%s loading error=\"failed\" />);", c),
				axeCheck,
			),
		}
	case CategoryLoops:
		return testCase{
			Title: fmt.Sprintf("renders %s items as accessible content (line %d)", e.Name, e.Line),
			Async: true,
			Body: lines(
				"const items = [{ id: 1, name: 'First' }, { id: 2, name: 'Second' }];",
				fmt.Sprintf("const { container } = render(<%s items={items} data={items} />);", c),
				axeCheck,
			),
		}
	default:
		return unitCase(c, e)
	}
}

func lines(stmts ...string) string {
	for i, s := range stmts {
		stmts[i] = "    " + s
	}
	return strings.Join(stmts, "\n")
}
