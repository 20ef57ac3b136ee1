package types

import "encoding/json"

// ResolvedVariable is a declared variable with a concrete value extracted from
// a proposal document set. Value is nil when the extraction capability could
// not find the variable in the proposal.
type ResolvedVariable struct {
	Name        string  `json:"name"`
	Type        VarType `json:"type"`
	Description string  `json:"description"`
	Value       *string `json:"value"`
}

// Resolved reports whether a concrete value was extracted.
func (v ResolvedVariable) Resolved() bool {
	return v.Value != nil
}

// ResolvedRule is a policy rule with its referenced variables resolved.
type ResolvedRule struct {
	ID                  string             `json:"id"`
	Expression          string             `json:"expression"`
	AlternateExpression string             `json:"alternate_expression"`
	Variables           []ResolvedVariable `json:"variables"`
}

// ResolvedPolicy is a policy bound to one specific proposal document set:
// concrete variable values, the raw assessment returned by the compliance
// evaluator, and optional reviewer comments. It is the unit stored in the
// content-addressed cache.
type ResolvedPolicy struct {
	Name           string             `json:"name"`
	ResourceID     string             `json:"resource_id,omitempty"`
	ID             string             `json:"id"`
	Description    string             `json:"description"`
	DefinitionHash string             `json:"definition_hash"`
	Version        string             `json:"version"`
	Types          []VarType          `json:"types"`
	Variables      []ResolvedVariable `json:"variables"`
	Rules          []ResolvedRule     `json:"rules"`
	ProposalPaths  []string           `json:"proposal_paths"`
	Comments       string             `json:"comments,omitempty"`
	Assessment     []json.RawMessage  `json:"assessment,omitempty"`
}

// NewResolvedPolicy copies the policy's identity fields and binds the resolved
// variables and rules for one proposal set.
func NewResolvedPolicy(p Policy, vars []ResolvedVariable, rules []ResolvedRule, proposalPaths []string) *ResolvedPolicy {
	return &ResolvedPolicy{
		Name:           p.Name,
		ResourceID:     p.ResourceID,
		ID:             p.ID,
		Description:    p.Description,
		DefinitionHash: p.DefinitionHash,
		Version:        p.Version,
		Types:          p.Types,
		Variables:      vars,
		Rules:          rules,
		ProposalPaths:  proposalPaths,
	}
}

// VersionedResourceID returns the remote identifier for the policy's resolved
// version, mirroring Policy.VersionedResourceID.
func (rp *ResolvedPolicy) VersionedResourceID() string {
	if rp.ResourceID == "" {
		return ""
	}
	if rp.Version == VersionDraft {
		return rp.ResourceID
	}
	return rp.ResourceID + ":" + rp.Version
}

// Rule returns the resolved rule with the given identifier. It satisfies the
// rule-lookup contract used for rendering finding insights.
func (rp *ResolvedPolicy) Rule(id string) (ResolvedRule, bool) {
	for _, r := range rp.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return ResolvedRule{}, false
}

// AssignedVariables returns the variables that carry a concrete value,
// excluding the compliance gate variable.
func (rp *ResolvedPolicy) AssignedVariables() []ResolvedVariable {
	var assigned []ResolvedVariable
	for _, v := range rp.Variables {
		if v.Resolved() && v.Name != GateVariable {
			assigned = append(assigned, v)
		}
	}
	return assigned
}
