// Package types provides type definitions for the policy processing and
// compliance pipeline.
package types

import "strings"

// GateVariable is the special boolean variable that every rule in a built
// policy must be conditioned on. It represents overall compliance with the
// full technical specification and is never sent to the evaluator as a
// premise.
const GateVariable = "IsCompliantWithFullPolicy"

// VersionDraft is the version tag of a policy that has never been published.
const VersionDraft = "DRAFT"

// TypeValue is one admissible value of an enumerated variable type.
type TypeValue struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// VarType describes the data type of a policy variable. The builtin types are
// BOOL, INT and NUMBER; enumerated types declare their admissible values.
type VarType struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Values      []TypeValue `json:"values,omitempty"`
}

// IsEnum reports whether the type is an enumerated custom type.
func (t VarType) IsEnum() bool {
	return len(t.Values) > 0
}

// IsBuiltin reports whether the type is one of the builtin primitive kinds.
func (t VarType) IsBuiltin() bool {
	switch strings.ToUpper(t.Name) {
	case "BOOL", "INT", "NUMBER":
		return true
	}
	return false
}

// BuiltinTypes returns the primitive types every policy implicitly declares.
func BuiltinTypes() []VarType {
	return []VarType{
		{Name: "INT", Description: "Integer number"},
		{Name: "BOOL", Description: "Boolean value"},
		{Name: "NUMBER", Description: "Real number value"},
	}
}

// Variable is a named, typed slot declared by a policy. Its description tells
// the extraction capability what to look for in proposal documents.
type Variable struct {
	Name        string  `json:"name"`
	Type        VarType `json:"type"`
	Description string  `json:"description"`
}

// Rule is a single formal policy rule.
type Rule struct {
	ID                  string     `json:"id"`
	Expression          string     `json:"expression"`
	AlternateExpression string     `json:"alternate_expression"`
	Variables           []Variable `json:"variables"`
}

// Policy is a named formal artifact built from one specification section.
// Policies are built once and retrieved read-only; rebuilding requires a new
// version.
type Policy struct {
	Name           string     `json:"name"`
	ResourceID     string     `json:"resource_id,omitempty"` // remote resource identifier, empty until built
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	DefinitionHash string     `json:"definition_hash"`
	Version        string     `json:"version"`
	Types          []VarType  `json:"types"`
	Variables      []Variable `json:"variables"`
	Rules          []Rule     `json:"rules"`
}

// VersionedResourceID returns the remote identifier for the policy's resolved
// version. DRAFT policies are addressed by their bare resource identifier.
func (p *Policy) VersionedResourceID() string {
	if p.ResourceID == "" {
		return ""
	}
	if p.Version == VersionDraft {
		return p.ResourceID
	}
	return p.ResourceID + ":" + p.Version
}

// Variable returns the declared variable with the given name.
func (p *Policy) Variable(name string) (Variable, bool) {
	for _, v := range p.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// VariablesInExpression returns the subset of vars whose names appear as
// whitespace-separated tokens of the formal expression.
func VariablesInExpression(expression string, vars []Variable) []Variable {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(expression) {
		tokens[tok] = true
	}
	var referenced []Variable
	for _, v := range vars {
		if tokens[v.Name] {
			referenced = append(referenced, v)
		}
	}
	return referenced
}
