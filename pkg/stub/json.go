package stub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getstubd/stubd/pkg/fault"
)

// ValueMatcher accepts either a bare string (shorthand for an exact match)
// or a full matcher object.
func (v *ValueMatcher) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Kind = MatchExact
		v.Value = s
		return nil
	}

	type alias ValueMatcher
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = ValueMatcher(a)
	if v.Kind == "" {
		v.Kind = MatchExact
	}
	return nil
}

func (v *ValueMatcher) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Kind = MatchExact
		v.Value = node.Value
		return nil
	}

	type alias ValueMatcher
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*v = ValueMatcher(a)
	if v.Kind == "" {
		v.Kind = MatchExact
	}
	return nil
}

// URLMatcher accepts a bare string: with a query string it becomes a full
// URL match, otherwise an exact path match.
func (u *URLMatcher) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		u.fromString(s)
		return nil
	}

	type alias URLMatcher
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = URLMatcher(a)
	return nil
}

func (u *URLMatcher) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		u.fromString(node.Value)
		return nil
	}

	type alias URLMatcher
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*u = URLMatcher(a)
	return nil
}

func (u *URLMatcher) fromString(s string) {
	if strings.Contains(s, "?") {
		u.URL = s
	} else {
		u.Path = s
	}
}

// ResponseDefinition accepts a structured JSON/YAML value for the body
// field; non-string bodies are serialized to compact JSON.
func (d *ResponseDefinition) UnmarshalJSON(data []byte) error {
	type alias ResponseDefinition
	aux := struct {
		*alias
		Body json.RawMessage `json:"body,omitempty"`
	}{alias: (*alias)(d)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Body) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Body, &s); err == nil {
		d.Body = s
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, aux.Body); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	d.Body = buf.String()
	return nil
}

func (d *ResponseDefinition) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Status       int               `yaml:"status"`
		Headers      map[string]string `yaml:"headers"`
		Body         yaml.Node         `yaml:"body"`
		BodyFile     string            `yaml:"bodyFile"`
		FixedDelayMs int               `yaml:"fixedDelayMs"`
		Fault        string            `yaml:"fault"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}

	ft, err := fault.Parse(aux.Fault)
	if err != nil {
		return err
	}

	d.Status = aux.Status
	d.Headers = aux.Headers
	d.BodyFile = aux.BodyFile
	d.FixedDelayMs = aux.FixedDelayMs
	d.Fault = ft

	switch aux.Body.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		d.Body = aux.Body.Value
		return nil
	default:
		var v any
		if err := aux.Body.Decode(&v); err != nil {
			return fmt.Errorf("invalid response body: %w", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("invalid response body: %w", err)
		}
		d.Body = string(b)
		return nil
	}
}
