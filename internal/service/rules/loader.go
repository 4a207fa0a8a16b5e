package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Parse decodes a YAML rule table. Unknown keys are rejected.
func Parse(data []byte) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f ruleFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode rule table: %w", err)
	}
	return f.Rules, nil
}

// DefaultRules returns the embedded red-flag table
func DefaultRules() []Rule {
	table, err := Parse(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule table is invalid: %v", err))
	}
	return table
}

// Load builds an engine from the YAML file at path, or from the embedded
// table when path is empty.
func Load(path string) (*Engine, error) {
	if path == "" {
		return NewEngine(DefaultRules())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table %s: %w", path, err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(table)
	if err != nil {
		return nil, fmt.Errorf("invalid rule table %s: %w", path, err)
	}
	return engine, nil
}
