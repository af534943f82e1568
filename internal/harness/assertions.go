package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/canon"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i := 0; i+1 < len(e.Trace); i += 2 {
			inv, comp := e.Trace[i], e.Trace[i+1]
			fmt.Fprintf(&buf, "  [%d] %s -> %s\n", i/2+1, inv.ActionURI, comp.OutputCase)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that the trace has an invocation of the action,
// optionally completing with the given case.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for i, event := range trace {
		if event.Type != EventInvocation || event.ActionURI != assertion.Action {
			continue
		}
		if assertion.Case == "" {
			return nil
		}
		if i+1 < len(trace) && trace[i+1].OutputCase == assertion.Case {
			return nil
		}
	}

	expected := "action " + assertion.Action
	if assertion.Case != "" {
		expected += " completing with " + assertion.Case
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Actions) {
			break
		}
		if event.Type == EventInvocation && event.ActionURI == assertion.Actions[next] {
			next++
		}
	}
	if next == len(assertion.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("actions in order %v", assertion.Actions),
		Actual:   fmt.Sprintf("%q not found after %v", assertion.Actions[next], assertion.Actions[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of invocations of an action.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.ActionURI == assertion.Action {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d invocations of %s", assertion.Count, assertion.Action),
		Actual:   fmt.Sprintf("%d invocations", count),
		Trace:    trace,
	}
}

// assertFinalState checks the value at a dotted path of the state view.
func assertFinalState(state map[string]any, assertion Assertion) error {
	got, err := lookupPath(state, assertion.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", assertion.Path, assertion.Equals),
			Actual:   err.Error(),
		}
	}
	if valuesEqual(got, assertion.Equals) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%s = %v", assertion.Path, assertion.Equals),
		Actual:   fmt.Sprintf("%s = %v", assertion.Path, got),
	}
}

// lookupPath resolves a dotted path. Numeric segments index arrays.
func lookupPath(root map[string]any, path string) (any, error) {
	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("path %q: no field %q", path, seg)
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("path %q: index %q out of range (len %d)", path, seg, len(node))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("path %q: cannot descend into %T at %q", path, cur, seg)
		}
	}
	return cur, nil
}

// valuesEqual compares an actual value against a YAML expectation.
// Numbers compare by decimal value, including money rendered as strings;
// everything else compares by canonical JSON.
func valuesEqual(actual, expected any) bool {
	a, aok := asNumber(actual)
	e, eok := asNumber(expected)
	if aok && eok {
		return a.Equal(e)
	}

	aj, err := canon.Marshal(normalizeValue(actual))
	if err != nil {
		return false
	}
	ej, err := canon.Marshal(normalizeValue(expected))
	if err != nil {
		return false
	}
	return bytes.Equal(aj, ej)
}

// asNumber reports whether v is numeric, treating numeric strings as
// numbers so decimal amounts match however they were written.
func asNumber(v any) (decimal.Decimal, bool) {
	switch v.(type) {
	case int, int64, uint64, float64, json.Number, string, decimal.Decimal:
		d, err := toDecimal(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
