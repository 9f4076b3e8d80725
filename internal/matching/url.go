package matching

import (
	"regexp"
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

// matchURL evaluates the URL constraint. It returns whether the request
// matched, any captured template variables, and a description of the
// expected URL for diagnostics.
func matchURL(u *stub.URLMatcher, req *Request) (bool, map[string]string, string) {
	switch {
	case u.URL != "":
		return req.FullURL() == u.URL, nil, u.URL

	case u.Path != "":
		return req.Path == u.Path, nil, u.Path

	case u.PathTemplate != "":
		params, ok := matchPathTemplate(u.PathTemplate, req.Path)
		return ok, params, u.PathTemplate

	case u.Pattern != "":
		// Anchor the whole pattern so /orders.* cannot match
		// /v2/orders/7/cancel via a substring hit. Wrapping in a group
		// keeps alternations like /a|/ab intact.
		re, err := regexp.Compile("^(?:" + u.Pattern + ")$")
		if err != nil {
			return false, nil, u.Pattern
		}
		return re.MatchString(req.FullURL()), nil, u.Pattern

	default:
		return true, nil, ""
	}
}

// matchPathTemplate matches a template like /users/{id}/orders against a
// concrete path, capturing each {name} segment.
func matchPathTemplate(tmpl, path string) (map[string]string, bool) {
	tsegs := splitPath(tmpl)
	psegs := splitPath(path)
	if len(tsegs) != len(psegs) {
		return nil, false
	}

	var params map[string]string
	for i, ts := range tsegs {
		if strings.HasPrefix(ts, "{") && strings.HasSuffix(ts, "}") {
			if psegs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[ts[1:len(ts)-1]] = psegs[i]
			continue
		}
		if ts != psegs[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
