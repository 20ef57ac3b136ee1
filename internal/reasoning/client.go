// Package reasoning provides the client for the external formal-policy
// service: policy resource lifecycle, build workflows, definition export, and
// guardrail-backed evaluation of variable assignments.
package reasoning

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// Workflow statuses reported by the service.
const (
	WorkflowCompleted = "COMPLETED"
	WorkflowFailed    = "FAILED"
	WorkflowCancelled = "CANCELLED"
)

// Tag is a key/value label attached to a policy resource. The builder tags
// every policy with document_uuid, chapter_number, and section_id so that
// policies can be reconciled from the service later.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PolicySummary is the service's listing entry for one policy version.
type PolicySummary struct {
	ResourceID string    `json:"policyArn"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	Tags       []Tag     `json:"tags,omitempty"`
}

// Tag returns the value of the named tag, or "".
func (s *PolicySummary) Tag(key string) string {
	for _, t := range s.Tags {
		if t.Key == key {
			return t.Value
		}
	}
	return ""
}

// PolicyDetail is the service's metadata for one policy version.
type PolicyDetail struct {
	ResourceID     string `json:"policyArn"`
	PolicyID       string `json:"policyId"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Version        string `json:"version"`
	DefinitionHash string `json:"definitionHash"`
}

// Definition is the formal policy definition as exported by the service.
type Definition struct {
	Types     []DefinitionType     `json:"types,omitempty"`
	Variables []DefinitionVariable `json:"variables,omitempty"`
	Rules     []DefinitionRule     `json:"rules,omitempty"`
}

// DefinitionType declares a custom enumerated type.
type DefinitionType struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Values      []types.TypeValue `json:"values"`
}

// DefinitionVariable declares a variable by name with a type reference.
type DefinitionVariable struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// DefinitionRule is one formal rule of the definition.
type DefinitionRule struct {
	ID                  string `json:"id"`
	Expression          string `json:"expression"`
	AlternateExpression string `json:"alternateExpression"`
}

// BuildDocument is the source content submitted to a build workflow.
type BuildDocument struct {
	Name        string `json:"documentName"`
	Content     string `json:"document"`
	ContentType string `json:"documentContentType"`
	Description string `json:"documentDescription,omitempty"`
}

// Workflow is the state of a policy build workflow.
type Workflow struct {
	ID        string    `json:"buildWorkflowId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the workflow has stopped making progress.
func (w *Workflow) Terminal() bool {
	switch w.Status {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	}
	return false
}

// Guardrail is an evaluation endpoint bound to one policy version. Guardrails
// are transient: the creator must delete them when evaluation is done.
type Guardrail struct {
	ID      string `json:"guardrailId"`
	Version string `json:"version"`
}

// Client is the contract the pipeline relies on from the formal-policy
// service.
type Client interface {
	// CreatePolicy creates an empty named policy resource with tags.
	CreatePolicy(ctx context.Context, name, description string, tags []Tag) (*PolicySummary, error)
	// StartBuildWorkflow submits source content to build rules into a policy.
	StartBuildWorkflow(ctx context.Context, resourceID string, doc BuildDocument) (string, error)
	// GetBuildWorkflow retrieves the state of one build workflow.
	GetBuildWorkflow(ctx context.Context, resourceID, workflowID string) (*Workflow, error)
	// ListBuildWorkflows lists all build workflows of a policy.
	ListBuildWorkflows(ctx context.Context, resourceID string) ([]Workflow, error)
	// GetBuildWorkflowDefinition reads the definition out of a completed
	// workflow's result assets.
	GetBuildWorkflowDefinition(ctx context.Context, resourceID, workflowID string) (*Definition, error)
	// ListPolicies lists all policy resources, tags included.
	ListPolicies(ctx context.Context) ([]PolicySummary, error)
	// ListPolicyVersions lists all versions of one policy resource.
	ListPolicyVersions(ctx context.Context, resourceID string) ([]PolicySummary, error)
	// GetPolicy retrieves the metadata of a (possibly versioned) policy.
	GetPolicy(ctx context.Context, versionedResourceID string) (*PolicyDetail, error)
	// ExportPolicyVersion exports the definition of a published version.
	ExportPolicyVersion(ctx context.Context, versionedResourceID string) (*Definition, error)
	// CreateGuardrail binds a policy version to an evaluation endpoint.
	CreateGuardrail(ctx context.Context, name, description, versionedResourceID string, confidenceThreshold float64) (*Guardrail, error)
	// DeleteGuardrail releases a guardrail resource.
	DeleteGuardrail(ctx context.Context, guardrailID string) error
	// ApplyGuardrail evaluates serialized variable assignments against the
	// guardrail and returns the raw assessment findings.
	ApplyGuardrail(ctx context.Context, guardrail *Guardrail, content string) ([]json.RawMessage, error)
}

// PolicyFromService assembles a Policy from the service's metadata and
// exported definition. Builtin primitive types are injected alongside the
// definition's custom types, and each rule's variable subset is derived from
// the tokens of its formal expression.
func PolicyFromService(detail *PolicyDetail, def *Definition) types.Policy {
	resourceID := detail.ResourceID
	if detail.Version != types.VersionDraft {
		// Versioned identifiers carry a ":<version>" suffix.
		if i := strings.LastIndex(resourceID, ":"); i >= 0 {
			resourceID = resourceID[:i]
		}
	}

	typeMap := map[string]types.VarType{}
	var allTypes []types.VarType
	for _, t := range def.Types {
		vt := types.VarType{Name: t.Name, Description: t.Description, Values: t.Values}
		typeMap[t.Name] = vt
		allTypes = append(allTypes, vt)
	}
	for _, bt := range types.BuiltinTypes() {
		typeMap[bt.Name] = bt
		allTypes = append(allTypes, bt)
	}

	variables := make([]types.Variable, 0, len(def.Variables))
	for _, v := range def.Variables {
		variables = append(variables, types.Variable{
			Name:        v.Name,
			Type:        typeMap[v.Type],
			Description: v.Description,
		})
	}

	rules := make([]types.Rule, 0, len(def.Rules))
	for _, r := range def.Rules {
		rules = append(rules, types.Rule{
			ID:                  r.ID,
			Expression:          r.Expression,
			AlternateExpression: r.AlternateExpression,
			Variables:           types.VariablesInExpression(r.Expression, variables),
		})
	}

	return types.Policy{
		Name:           detail.Name,
		ResourceID:     resourceID,
		ID:             detail.PolicyID,
		Description:    detail.Description,
		DefinitionHash: detail.DefinitionHash,
		Version:        detail.Version,
		Types:          allTypes,
		Variables:      variables,
		Rules:          rules,
	}
}
