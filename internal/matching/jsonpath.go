package matching

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/getstubd/stubd/pkg/stub"
)

// matchJSONPath evaluates a jsonPath body matcher. With no expected value
// the path only needs to resolve to at least one result; with an expected
// value the first result must equal it.
func matchJSONPath(bm stub.BodyMatcher, body []byte) bool {
	data, err := oj.Parse(body)
	if err != nil {
		return false
	}

	expr, err := jp.ParseString(bm.Value)
	if err != nil {
		return false
	}

	results := expr.Get(data)
	if len(results) == 0 {
		return false
	}
	if bm.Expected == nil {
		return true
	}
	return valuesEqual(results[0], bm.Expected)
}

// ValidateJSONPath checks that an expression parses. Used at registration
// time so bad expressions are rejected before they reach the hot path.
func ValidateJSONPath(expr string) error {
	if _, err := jp.ParseString(expr); err != nil {
		return fmt.Errorf("invalid JSONPath expression %q: %w", expr, err)
	}
	return nil
}

// valuesEqual compares a JSONPath result with an expected value, coercing
// numeric types so int64 results compare equal to float64 expectations.
func valuesEqual(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		if wf, ok := toFloat(want); ok {
			return gf == wf
		}
		return false
	}
	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	case nil:
		return want == nil
	default:
		return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
