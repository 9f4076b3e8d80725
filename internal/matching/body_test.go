package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getstubd/stubd/pkg/stub"
)

func TestMatchBody(t *testing.T) {
	tests := []struct {
		name    string
		matcher stub.BodyMatcher
		body    string
		matched bool
	}{
		{"equalTo", stub.BodyMatcher{Kind: stub.BodyEquals, Value: "hello"}, "hello", true},
		{"equalTo mismatch", stub.BodyMatcher{Kind: stub.BodyEquals, Value: "hello"}, "hello ", false},
		{"contains", stub.BodyMatcher{Kind: stub.BodyContains, Value: "wor"}, "hello world", true},
		{"contains mismatch", stub.BodyMatcher{Kind: stub.BodyContains, Value: "xyz"}, "hello world", false},
		{"matches regex", stub.BodyMatcher{Kind: stub.BodyRegex, Value: `"sku":\s*"A-\d+"`}, `{"sku": "A-100"}`, true},
		{"equalToJson ignores order and whitespace",
			stub.BodyMatcher{Kind: stub.BodyEqualsJSON, Value: `{"b": 2, "a": 1}`},
			`{ "a": 1, "b": 2 }`, true},
		{"equalToJson value mismatch",
			stub.BodyMatcher{Kind: stub.BodyEqualsJSON, Value: `{"a": 1}`},
			`{"a": 2}`, false},
		{"equalToJson non-json body",
			stub.BodyMatcher{Kind: stub.BodyEqualsJSON, Value: `{"a": 1}`},
			`not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matched, matchBody(tt.matcher, []byte(tt.body)))
		})
	}
}

func TestMatchJSONPath(t *testing.T) {
	body := `{"order": {"total": 250, "items": [{"sku": "A"}, {"sku": "B"}], "paid": true}}`

	tests := []struct {
		name    string
		matcher stub.BodyMatcher
		matched bool
	}{
		{"existence", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.total"}, true},
		{"existence missing", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.discount"}, false},
		{"numeric equality", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.total", Expected: 250}, true},
		{"float expectation", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.total", Expected: 250.0}, true},
		{"numeric mismatch", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.total", Expected: 100}, false},
		{"string equality", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.items[0].sku", Expected: "A"}, true},
		{"bool equality", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.order.paid", Expected: true}, true},
		{"filter expression", stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: `$.order.items[?(@.sku == 'B')]`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matched, matchBody(tt.matcher, []byte(body)))
		})
	}
}

func TestMatchJSONPathInvalidBody(t *testing.T) {
	m := stub.BodyMatcher{Kind: stub.BodyJSONPath, Value: "$.a"}
	assert.False(t, matchBody(m, []byte("not json")))
}

func TestMatchExpr(t *testing.T) {
	tests := []struct {
		name    string
		program string
		body    string
		matched bool
	}{
		{"json field comparison", `json.total > 100`, `{"total": 250}`, true},
		{"json field below threshold", `json.total > 100`, `{"total": 50}`, false},
		{"raw body", `body startsWith "ping"`, "ping-7", true},
		{"non-boolean result", `json.total`, `{"total": 1}`, false},
		{"error on non-json access", `json.total > 1`, "plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matched, matchExpr(tt.program, []byte(tt.body)))
		})
	}
}

func TestValidateExpressions(t *testing.T) {
	assert.NoError(t, ValidateJSONPath("$.order.total"))
	assert.Error(t, ValidateJSONPath("$[unclosed"))

	assert.NoError(t, ValidateExpr(`body contains "x"`))
	assert.Error(t, ValidateExpr(`1 +`))
}

func TestValidatePattern(t *testing.T) {
	good := stub.RequestPattern{Body: []stub.BodyMatcher{
		{Kind: stub.BodyJSONPath, Value: "$.a"},
		{Kind: stub.BodyExpr, Value: `body == "x"`},
	}}
	assert.NoError(t, ValidatePattern(&good))

	bad := stub.RequestPattern{Body: []stub.BodyMatcher{
		{Kind: stub.BodyJSONPath, Value: "$[bad"},
	}}
	assert.Error(t, ValidatePattern(&bad))
}
