package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

// Result reports the outcome of evaluating a pattern against a request.
type Result struct {
	// Matched is true only when every configured constraint passed.
	Matched bool

	// Specificity is the number of configured constraints. Only meaningful
	// when Matched is true.
	Specificity int

	// PathParams holds variables captured by a pathTemplate URL matcher.
	PathParams map[string]string
}

// FieldResult records the outcome of a single constraint, used for
// near-miss diagnostics.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// Evaluate checks every configured constraint of the pattern against the
// request.
func Evaluate(p *stub.RequestPattern, req *Request) Result {
	fields, params := breakdown(p, req)

	res := Result{Matched: true, Specificity: len(fields)}
	for _, f := range fields {
		if !f.Matched {
			return Result{}
		}
	}
	res.PathParams = params
	return res
}

// breakdown evaluates each configured constraint independently and returns
// one FieldResult per constraint. Path parameters are returned when the URL
// constraint is a template and matched.
func breakdown(p *stub.RequestPattern, req *Request) ([]FieldResult, map[string]string) {
	var fields []FieldResult
	var params map[string]string

	if m := p.Method; m != "" && !strings.EqualFold(m, "ANY") {
		fields = append(fields, FieldResult{
			Field:    "method",
			Matched:  strings.EqualFold(m, req.Method),
			Expected: strings.ToUpper(m),
			Actual:   req.Method,
		})
	}

	if !p.URL.IsZero() {
		ok, captured, expected := matchURL(p.URL, req)
		fields = append(fields, FieldResult{
			Field:    "url",
			Matched:  ok,
			Expected: expected,
			Actual:   req.FullURL(),
		})
		if ok {
			params = captured
		}
	}

	for _, name := range sortedKeys(p.Headers) {
		vm := p.Headers[name]
		values := req.Header.Values(name)
		ok := matchValues(vm, values)
		fields = append(fields, FieldResult{
			Field:    "header:" + name,
			Matched:  ok,
			Expected: describeMatcher(vm),
			Actual:   strings.Join(values, ", "),
		})
	}

	for _, name := range sortedKeys(p.Query) {
		vm := p.Query[name]
		values := req.Query[name]
		ok := matchValues(vm, values)
		fields = append(fields, FieldResult{
			Field:    "query:" + name,
			Matched:  ok,
			Expected: describeMatcher(vm),
			Actual:   strings.Join(values, ", "),
		})
	}

	for i, bm := range p.Body {
		ok := matchBody(bm, req.Body)
		fields = append(fields, FieldResult{
			Field:    fmt.Sprintf("body[%d]", i),
			Matched:  ok,
			Expected: describeBodyMatcher(bm),
			Actual:   truncate(string(req.Body), 120),
		})
	}

	return fields, params
}

func sortedKeys(m map[string]stub.ValueMatcher) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
