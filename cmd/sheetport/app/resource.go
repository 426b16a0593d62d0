package app

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/headers"
	"github.com/sheetport/sheetport/pkg/schema"
)

// resourceFile is the YAML resource definition the CLI operates on:
//
//	name: book
//	key_field: id
//	delete_field: delete
//	fields:
//	  - id: id
//	    type: int
//	    label: Primary Key
//	  - id: name
//	rules:
//	  - name: legacy
//	    pairs:
//	      - label: Identifier
//	        field: id
type resourceFile struct {
	Name        string      `yaml:"name"`
	KeyField    string      `yaml:"key_field"`
	DeleteField string      `yaml:"delete_field"`
	Fields      []fieldDef  `yaml:"fields"`
	Rules       []namedRule `yaml:"rules"`
}

type fieldDef struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Label  string `yaml:"label"`
	Layout string `yaml:"layout"` // for type: time
}

type namedRule struct {
	Name  string    `yaml:"name"`
	Pairs []pairDef `yaml:"pairs"`
}

type pairDef struct {
	Label string `yaml:"label"`
	Field string `yaml:"field"`
}

// loadResource parses a resource definition file into the schema
// resource, the predefined rule registry, and the rules by name.
func loadResource(path string) (*schema.Resource, *headers.Registry, map[string]headers.Rule, error) {
	if path == "" {
		return nil, nil, nil, errors.NewConfigError("resource",
			"a resource definition file is required (--resource)", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, errors.WrapIO("read", path, err)
	}

	var def resourceFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, nil, nil, errors.WrapParse("yaml", err)
	}

	fields := make([]schema.Field, 0, len(def.Fields))
	for _, f := range def.Fields {
		field, err := buildField(f)
		if err != nil {
			return nil, nil, nil, err
		}
		fields = append(fields, field)
	}

	var opts []schema.Option
	if def.KeyField != "" {
		opts = append(opts, schema.WithKeyField(def.KeyField))
	}
	if def.DeleteField != "" {
		opts = append(opts, schema.WithDeleteField(def.DeleteField))
	}

	res, err := schema.New(def.Name, fields, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	ruleSets := make([][]headers.Pair, 0, len(def.Rules))
	byName := make(map[string]headers.Rule, len(def.Rules))
	for _, nr := range def.Rules {
		pairs := make([]headers.Pair, 0, len(nr.Pairs))
		for _, p := range nr.Pairs {
			pairs = append(pairs, headers.Pair{Label: p.Label, FieldID: p.Field})
		}
		rule, _ := headers.RuleFromPairs(pairs)
		byName[nr.Name] = rule
		ruleSets = append(ruleSets, pairs)
	}

	return res, headers.NewRegistry(ruleSets...), byName, nil
}

// buildField maps a field definition to its schema constructor. An
// empty type means string.
func buildField(f fieldDef) (schema.Field, error) {
	label := f.Label
	if label == "" {
		label = f.ID
	}
	switch f.Type {
	case "", "string":
		return schema.String(f.ID, label), nil
	case "int":
		return schema.Int(f.ID, label), nil
	case "float":
		return schema.Float(f.ID, label), nil
	case "bool":
		return schema.Bool(f.ID, label), nil
	case "time":
		layout := f.Layout
		if layout == "" {
			layout = "2006-01-02"
		}
		return schema.Time(f.ID, label, layout), nil
	default:
		return schema.Field{}, errors.NewConfigError("resource",
			fmt.Sprintf("unknown field type %q for %s", f.Type, f.ID), nil)
	}
}
