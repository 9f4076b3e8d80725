package stub

import (
	"github.com/getstubd/stubd/pkg/fault"
)

// DefaultPriority is assigned when a mapping does not set one explicitly.
// Lower values win during selection.
const DefaultPriority = 5

// StubMapping pairs a request pattern with the response to render when a
// request matches it. Mappings may belong to a scenario, in which case they
// are only eligible while the scenario is in RequiredState.
type StubMapping struct {
	// ID uniquely identifies the mapping. Assigned on registration when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is an optional human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Priority orders candidate mappings: lower values win. Zero means
	// unset and is treated as DefaultPriority.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`

	Request  RequestPattern     `json:"request" yaml:"request"`
	Response ResponseDefinition `json:"response" yaml:"response"`

	// ScenarioName binds the mapping to a scenario state machine.
	ScenarioName string `json:"scenarioName,omitempty" yaml:"scenarioName,omitempty"`

	// RequiredState restricts eligibility to a scenario state. Empty binds
	// the mapping to the scenario's initial "Started" state.
	RequiredState string `json:"requiredState,omitempty" yaml:"requiredState,omitempty"`

	// NewState, when non-empty, is the state the scenario transitions to
	// when this mapping is selected.
	NewState string `json:"newState,omitempty" yaml:"newState,omitempty"`
}

// EffectivePriority returns the priority used for ordering.
func (m *StubMapping) EffectivePriority() int {
	if m.Priority == 0 {
		return DefaultPriority
	}
	return m.Priority
}

// InScenario reports whether the mapping participates in a scenario.
func (m *StubMapping) InScenario() bool {
	return m.ScenarioName != ""
}

// Copy returns a deep copy of the mapping. Stores hand out copies so
// callers cannot mutate registered state.
func (m *StubMapping) Copy() *StubMapping {
	c := *m
	c.Request = *m.Request.Copy()
	c.Response = *m.Response.Copy()
	return &c
}

// RequestPattern declares the constraints an incoming request must satisfy.
// Absent fields are wildcards: they match anything and contribute nothing
// to specificity.
type RequestPattern struct {
	// Method is the HTTP method, matched case-insensitively.
	// Empty or "ANY" matches every method.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// URL constrains the request URL. Nil matches any URL.
	URL *URLMatcher `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers maps header names to matchers. Every entry must pass.
	Headers map[string]ValueMatcher `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Query maps query parameter names to matchers. Every entry must pass.
	Query map[string]ValueMatcher `json:"query,omitempty" yaml:"query,omitempty"`

	// Body lists matchers applied to the request body. Every entry must pass.
	Body []BodyMatcher `json:"body,omitempty" yaml:"body,omitempty"`
}

// Copy returns a deep copy of the pattern.
func (p *RequestPattern) Copy() *RequestPattern {
	c := *p
	if p.URL != nil {
		u := *p.URL
		c.URL = &u
	}
	if p.Headers != nil {
		c.Headers = make(map[string]ValueMatcher, len(p.Headers))
		for k, v := range p.Headers {
			c.Headers[k] = v
		}
	}
	if p.Query != nil {
		c.Query = make(map[string]ValueMatcher, len(p.Query))
		for k, v := range p.Query {
			c.Query[k] = v
		}
	}
	if p.Body != nil {
		c.Body = append([]BodyMatcher(nil), p.Body...)
	}
	return &c
}

// URLMatcher constrains the request URL. Exactly one field may be set.
type URLMatcher struct {
	// URL matches the full request URL including the query string, exactly.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Path matches the request path exactly, ignoring the query string.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// PathTemplate matches a templated path such as /users/{id}. Segment
	// variables are captured and exposed to the renderer.
	PathTemplate string `json:"pathTemplate,omitempty" yaml:"pathTemplate,omitempty"`

	// Pattern is a regular expression anchored against the full URL
	// including the query string.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// IsZero reports whether no constraint is set.
func (u *URLMatcher) IsZero() bool {
	return u == nil || (u.URL == "" && u.Path == "" && u.PathTemplate == "" && u.Pattern == "")
}

// MatchKind identifies how a ValueMatcher compares a header or query value.
type MatchKind string

// Value matcher kinds. The set is closed: unknown kinds fail validation.
const (
	MatchExact    MatchKind = "exact"
	MatchContains MatchKind = "contains"
	MatchRegex    MatchKind = "regex"
	MatchPresent  MatchKind = "present"
	MatchAbsent   MatchKind = "absent"
)

// ValueMatcher matches a single header or query parameter value.
type ValueMatcher struct {
	Kind MatchKind `json:"kind" yaml:"kind"`

	// Value is the comparison operand. Unused for present/absent.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// CaseInsensitive relaxes exact and contains comparisons.
	CaseInsensitive bool `json:"caseInsensitive,omitempty" yaml:"caseInsensitive,omitempty"`
}

// BodyMatchKind identifies how a BodyMatcher inspects the request body.
type BodyMatchKind string

// Body matcher kinds. The set is closed: unknown kinds fail validation.
const (
	BodyEquals     BodyMatchKind = "equalTo"
	BodyEqualsJSON BodyMatchKind = "equalToJson"
	BodyContains   BodyMatchKind = "contains"
	BodyRegex      BodyMatchKind = "matches"
	BodyJSONPath   BodyMatchKind = "jsonPath"
	BodyExpr       BodyMatchKind = "expr"
)

// BodyMatcher matches the request body.
type BodyMatcher struct {
	Kind BodyMatchKind `json:"kind" yaml:"kind"`

	// Value is the operand: literal text, a regular expression, a JSONPath
	// expression, or an expr program depending on Kind.
	Value string `json:"value" yaml:"value"`

	// Expected is the value a jsonPath expression must evaluate to. When
	// nil the matcher only requires the path to exist.
	Expected any `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// ResponseDefinition describes the response rendered for a matched request.
type ResponseDefinition struct {
	// Status is the HTTP status code. Required unless Fault is set.
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// Headers are written verbatim on the response.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body is the literal response body. Mutually exclusive with BodyFile.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// BodyFile names a file in the content store to serve as the body.
	// Mutually exclusive with Body.
	BodyFile string `json:"bodyFile,omitempty" yaml:"bodyFile,omitempty"`

	// FixedDelayMs delays the response by the given number of milliseconds
	// before the first byte is written.
	FixedDelayMs int `json:"fixedDelayMs,omitempty" yaml:"fixedDelayMs,omitempty"`

	// Fault, when set, abandons normal rendering and injects the named
	// transport-level failure instead.
	Fault fault.Type `json:"fault,omitempty" yaml:"fault,omitempty"`
}

// Copy returns a deep copy of the definition.
func (d *ResponseDefinition) Copy() *ResponseDefinition {
	c := *d
	if d.Headers != nil {
		c.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			c.Headers[k] = v
		}
	}
	return &c
}
