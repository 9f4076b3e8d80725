package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getstubd/stubd/pkg/stub"
)

// StubFile is the on-disk shape of a mapping file: either a document with
// a "mappings" key or a bare list of mappings.
type StubFile struct {
	Mappings []*stub.StubMapping `yaml:"mappings" json:"mappings"`
}

// LoadStubFile parses one mapping file. Every mapping is validated; the
// first invalid one fails the whole file.
func LoadStubFile(path string) ([]*stub.StubMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stub file: %w", err)
	}

	var mappings []*stub.StubMapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		mappings, err = parseJSONStubs(data)
	case ".yaml", ".yml":
		mappings, err = parseYAMLStubs(data)
	default:
		return nil, fmt.Errorf("unsupported stub file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse stub file %s: %w", path, err)
	}

	for i, m := range mappings {
		if m == nil {
			return nil, fmt.Errorf("stub file %s: mapping %d is empty", path, i)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("stub file %s: mapping %d: %w", path, i, err)
		}
	}
	return mappings, nil
}

func parseJSONStubs(data []byte) ([]*stub.StubMapping, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*stub.StubMapping
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var file StubFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Mappings, nil
}

func parseYAMLStubs(data []byte) ([]*stub.StubMapping, error) {
	var probe struct {
		Mappings []yaml.Node `yaml:"mappings"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Mappings != nil {
		var file StubFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, err
		}
		return file.Mappings, nil
	}

	var list []*stub.StubMapping
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
