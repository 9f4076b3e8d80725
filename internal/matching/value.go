package matching

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

// matchValues evaluates a value matcher against the values observed for a
// header or query parameter. Matchers other than absent pass when any one
// of the observed values matches.
func matchValues(vm stub.ValueMatcher, values []string) bool {
	kind := vm.Kind
	if kind == "" {
		kind = stub.MatchExact
	}

	switch kind {
	case stub.MatchPresent:
		return len(values) > 0
	case stub.MatchAbsent:
		return len(values) == 0
	}

	for _, v := range values {
		if matchOne(kind, vm, v) {
			return true
		}
	}
	return false
}

func matchOne(kind stub.MatchKind, vm stub.ValueMatcher, v string) bool {
	switch kind {
	case stub.MatchExact:
		if vm.CaseInsensitive {
			return strings.EqualFold(v, vm.Value)
		}
		return v == vm.Value

	case stub.MatchContains:
		if vm.CaseInsensitive {
			return strings.Contains(strings.ToLower(v), strings.ToLower(vm.Value))
		}
		return strings.Contains(v, vm.Value)

	case stub.MatchRegex:
		re, err := regexp.Compile(vm.Value)
		if err != nil {
			return false
		}
		return re.MatchString(v)

	default:
		return false
	}
}

func describeMatcher(vm stub.ValueMatcher) string {
	kind := vm.Kind
	if kind == "" {
		kind = stub.MatchExact
	}
	switch kind {
	case stub.MatchPresent, stub.MatchAbsent:
		return string(kind)
	default:
		return fmt.Sprintf("%s %q", kind, vm.Value)
	}
}
