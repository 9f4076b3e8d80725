package matching

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

func matchBody(bm stub.BodyMatcher, body []byte) bool {
	switch bm.Kind {
	case stub.BodyEquals:
		return string(body) == bm.Value

	case stub.BodyContains:
		return strings.Contains(string(body), bm.Value)

	case stub.BodyRegex:
		re, err := regexp.Compile(bm.Value)
		if err != nil {
			return false
		}
		return re.Match(body)

	case stub.BodyEqualsJSON:
		return jsonEqual(body, []byte(bm.Value))

	case stub.BodyJSONPath:
		return matchJSONPath(bm, body)

	case stub.BodyExpr:
		return matchExpr(bm.Value, body)

	default:
		return false
	}
}

// jsonEqual compares two JSON documents structurally, ignoring key order
// and whitespace.
func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func describeBodyMatcher(bm stub.BodyMatcher) string {
	switch bm.Kind {
	case stub.BodyJSONPath:
		if bm.Expected != nil {
			return fmt.Sprintf("jsonPath %s == %v", bm.Value, bm.Expected)
		}
		return fmt.Sprintf("jsonPath %s exists", bm.Value)
	default:
		return fmt.Sprintf("%s %q", bm.Kind, truncate(bm.Value, 80))
	}
}
