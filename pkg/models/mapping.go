package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMappingNotFound is returned when no stored profile matches a reference.
var ErrMappingNotFound = errors.New("mapping not found")

// DefaultConcatSymbol separates values appended to an already populated target field.
const DefaultConcatSymbol = "|"

// FieldMappingRule is one source column -> target field directive.
type FieldMappingRule struct {
	SourceField   string `json:"source_field" yaml:"source_field" bson:"source_field"`
	TargetField   string `json:"target_field" yaml:"target_field" bson:"target_field"`
	Include       bool   `json:"include" yaml:"include" bson:"include"`
	ConstantValue string `json:"constant_value,omitempty" yaml:"constant_value,omitempty" bson:"constant_value,omitempty"`
	Concatenate   bool   `json:"concatenate,omitempty" yaml:"concatenate,omitempty" bson:"concatenate,omitempty"`
	ConcatPrefix  bool   `json:"concat_prefix,omitempty" yaml:"concat_prefix,omitempty" bson:"concat_prefix,omitempty"`
	ConcatSymbol  string `json:"concat_symbol,omitempty" yaml:"concat_symbol,omitempty" bson:"concat_symbol,omitempty"`
}

// Active reports whether the rule takes part in mapping at all.
func (r FieldMappingRule) Active() bool {
	return r.Include && strings.TrimSpace(r.TargetField) != ""
}

// Symbol returns the concatenation separator, falling back to DefaultConcatSymbol.
func (r FieldMappingRule) Symbol() string {
	if r.ConcatSymbol == "" {
		return DefaultConcatSymbol
	}
	return r.ConcatSymbol
}

// MappingProfile is a named, ordered set of rules for one target type.
type MappingProfile struct {
	ID         int64              `json:"id" yaml:"id" bson:"id"`
	Name       string             `json:"name" yaml:"name" bson:"name"`
	TargetType string             `json:"target_type" yaml:"target_type" bson:"target_type"`
	Rules      []FieldMappingRule `json:"field_mapping" yaml:"field_mapping" bson:"field_mapping"`
}

// ActiveRules returns the rules that map something, in declared order.
func (p *MappingProfile) ActiveRules() []FieldMappingRule {
	if p == nil {
		return nil
	}
	out := make([]FieldMappingRule, 0, len(p.Rules))
	for _, r := range p.Rules {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// TargetFields returns the distinct target field names in first-declared order.
func (p *MappingProfile) TargetFields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.ActiveRules() {
		if !seen[r.TargetField] {
			seen[r.TargetField] = true
			out = append(out, r.TargetField)
		}
	}
	return out
}

// Merge returns a new profile holding p's rules with override applied on top.
// An override rule replaces every base rule reading the same source column;
// override rules for new source columns are appended in their own order.
func (p *MappingProfile) Merge(override *MappingProfile) *MappingProfile {
	merged := &MappingProfile{}
	if p != nil {
		*merged = *p
		merged.Rules = nil
	}
	if override == nil || len(override.Rules) == 0 {
		if p != nil {
			merged.Rules = append(merged.Rules, p.Rules...)
		}
		return merged
	}

	replaced := make(map[string]bool)
	for _, r := range override.Rules {
		replaced[strings.ToLower(r.SourceField)] = true
	}
	if p != nil {
		for _, r := range p.Rules {
			if !replaced[strings.ToLower(r.SourceField)] {
				merged.Rules = append(merged.Rules, r)
			}
		}
	}
	merged.Rules = append(merged.Rules, override.Rules...)
	if merged.Name == "" {
		merged.Name = override.Name
		merged.ID = override.ID
	}
	if merged.TargetType == "" {
		merged.TargetType = override.TargetType
	}
	return merged
}

// SimpleProfile builds an include-all profile from source -> target pairs, in pairs order.
func SimpleProfile(name string, pairs ...[2]string) *MappingProfile {
	p := &MappingProfile{Name: name}
	for _, pair := range pairs {
		p.Rules = append(p.Rules, FieldMappingRule{SourceField: pair[0], TargetField: pair[1], Include: true})
	}
	return p
}

// LoadMapping parses a JSON document holding either one profile or a list of them.
func LoadMapping(data []byte) ([]MappingProfile, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []MappingProfile
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one MappingProfile
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []MappingProfile{one}, nil
}

// LoadMappingYAML is the YAML counterpart of LoadMapping.
func LoadMappingYAML(data []byte) ([]MappingProfile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		var list []MappingProfile
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.MappingNode:
		var one MappingProfile
		if err := node.Decode(&one); err != nil {
			return nil, err
		}
		return []MappingProfile{one}, nil
	default:
		return nil, fmt.Errorf("unexpected YAML document kind %v", node.Content[0].Kind)
	}
}

// FindProfile picks the profile whose numeric id or (case-insensitive) name equals ref.
func FindProfile(profiles []MappingProfile, ref string) (*MappingProfile, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrMappingNotFound)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range profiles {
			if profiles[i].ID == id {
				return &profiles[i], nil
			}
		}
	}
	for i := range profiles {
		if strings.EqualFold(profiles[i].Name, ref) {
			return &profiles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMappingNotFound, ref)
}

// GroupByTarget groups profiles by target type; groups and members are sorted by name.
func GroupByTarget(profiles []MappingProfile) ([]string, map[string][]MappingProfile) {
	groups := make(map[string][]MappingProfile)
	for _, p := range profiles {
		key := p.TargetType
		if key == "" {
			key = "unspecified"
		}
		groups[key] = append(groups[key], p)
	}
	keys := make([]string, 0, len(groups))
	for k, list := range groups {
		keys = append(keys, k)
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}
	sort.Strings(keys)
	return keys, groups
}
