package stub

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/getstubd/stubd/pkg/fault"
)

// ValidationError describes why a mapping was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid stub mapping: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the mapping's structural invariants. Matcher expression
// syntax (JSONPath, expr) is checked separately at registration time.
func (m *StubMapping) Validate() error {
	if m.Priority < 0 {
		return invalid("priority", "must not be negative, got %d", m.Priority)
	}
	if m.ScenarioName == "" && (m.RequiredState != "" || m.NewState != "") {
		return invalid("scenarioName", "requiredState/newState require a scenario name")
	}
	if err := m.Request.validate(); err != nil {
		return err
	}
	return m.Response.validate()
}

func (p *RequestPattern) validate() error {
	if p.URL != nil {
		if err := p.URL.validate(); err != nil {
			return err
		}
	}
	for name, vm := range p.Headers {
		if err := vm.validate("request.headers." + name); err != nil {
			return err
		}
	}
	for name, vm := range p.Query {
		if err := vm.validate("request.query." + name); err != nil {
			return err
		}
	}
	for i, bm := range p.Body {
		if err := bm.validate(fmt.Sprintf("request.body[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (u *URLMatcher) validate() error {
	set := 0
	for _, v := range []string{u.URL, u.Path, u.PathTemplate, u.Pattern} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return invalid("request.url", "url, path, pathTemplate and pattern are mutually exclusive")
	}
	if u.Pattern != "" {
		if _, err := regexp.Compile(u.Pattern); err != nil {
			return invalid("request.url.pattern", "invalid regular expression: %v", err)
		}
	}
	if u.PathTemplate != "" {
		if err := validatePathTemplate(u.PathTemplate); err != nil {
			return invalid("request.url.pathTemplate", "%v", err)
		}
	}
	return nil
}

func validatePathTemplate(tmpl string) error {
	if !strings.HasPrefix(tmpl, "/") {
		return fmt.Errorf("must start with /")
	}
	for _, seg := range strings.Split(strings.TrimPrefix(tmpl, "/"), "/") {
		if strings.HasPrefix(seg, "{") || strings.HasSuffix(seg, "}") {
			if len(seg) < 3 || !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
				return fmt.Errorf("malformed variable segment %q", seg)
			}
			name := seg[1 : len(seg)-1]
			if strings.ContainsAny(name, "{}") {
				return fmt.Errorf("malformed variable segment %q", seg)
			}
		}
	}
	return nil
}

func (v *ValueMatcher) validate(field string) error {
	kind := v.Kind
	if kind == "" {
		kind = MatchExact
	}
	switch kind {
	case MatchExact, MatchContains:
	case MatchRegex:
		if _, err := regexp.Compile(v.Value); err != nil {
			return invalid(field, "invalid regular expression: %v", err)
		}
	case MatchPresent, MatchAbsent:
		if v.Value != "" {
			return invalid(field, "%s matcher must not set a value", kind)
		}
	default:
		return invalid(field, "unknown matcher kind %q", v.Kind)
	}
	return nil
}

func (b *BodyMatcher) validate(field string) error {
	switch b.Kind {
	case BodyEquals, BodyContains:
	case BodyRegex:
		if _, err := regexp.Compile(b.Value); err != nil {
			return invalid(field, "invalid regular expression: %v", err)
		}
	case BodyEqualsJSON:
		if !json.Valid([]byte(b.Value)) {
			return invalid(field, "equalToJson operand is not valid JSON")
		}
	case BodyJSONPath:
		if b.Value == "" {
			return invalid(field, "jsonPath matcher requires an expression")
		}
	case BodyExpr:
		if b.Value == "" {
			return invalid(field, "expr matcher requires an expression")
		}
	default:
		return invalid(field, "unknown body matcher kind %q", b.Kind)
	}
	return nil
}

func (d *ResponseDefinition) validate() error {
	// A fault replaces normal rendering, so only fault responses may omit
	// the status code.
	if d.Fault == fault.None || d.Status != 0 {
		if d.Status < 100 || d.Status > 599 {
			return invalid("response.status", "required, must be between 100 and 599, got %d", d.Status)
		}
	}
	if d.Body != "" && d.BodyFile != "" {
		return invalid("response.body", "body and bodyFile are mutually exclusive")
	}
	if d.FixedDelayMs < 0 {
		return invalid("response.fixedDelayMs", "must not be negative, got %d", d.FixedDelayMs)
	}
	if !d.Fault.IsValid() {
		return invalid("response.fault", "unknown fault type %q", d.Fault)
	}
	return nil
}
