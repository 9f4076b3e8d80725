package recording

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/stub"
)

// volatileHeaders are dropped from recorded responses: replaying them
// verbatim would lie about the stub's own transport.
var volatileHeaders = map[string]bool{
	"Date":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
	"Keep-Alive":        true,
}

// Convert derives a candidate stub mapping from an observed exchange.
// JSON request bodies become structural equalToJson matchers so key order
// and whitespace differences in future requests still match; other bodies
// are matched verbatim.
func Convert(ex *proxy.Exchange) *stub.StubMapping {
	pattern := stub.RequestPattern{
		Method: ex.Request.Method,
	}
	if ex.Request.Query != "" {
		pattern.URL = &stub.URLMatcher{URL: ex.Request.Path + "?" + ex.Request.Query}
	} else {
		pattern.URL = &stub.URLMatcher{Path: ex.Request.Path}
	}

	if len(ex.Request.Body) > 0 {
		kind := stub.BodyEquals
		if gjson.ValidBytes(ex.Request.Body) {
			kind = stub.BodyEqualsJSON
		}
		pattern.Body = []stub.BodyMatcher{{Kind: kind, Value: string(ex.Request.Body)}}
	}

	headers := make(map[string]string)
	for name, values := range ex.Response.Headers {
		if volatileHeaders[name] || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}
	if len(headers) == 0 {
		headers = nil
	}

	return &stub.StubMapping{
		Name: fmt.Sprintf("recorded %s %s", ex.Request.Method, ex.Request.Path),
		Request: pattern,
		Response: stub.ResponseDefinition{
			Status:  ex.Response.Status,
			Headers: headers,
			Body:    string(ex.Response.Body),
		},
	}
}
