// Package compliance evaluates resolved policies against the formal-reasoning
// capability and maps the returned verdicts into typed findings.
package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/findings"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/reasoning"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// guardrailConfidenceThreshold is the confidence required from the evaluation
// endpoint before a verdict is reported.
const guardrailConfidenceThreshold = 1.0

// Evaluator feeds resolved variable assignments into the formal evaluation
// capability. A guardrail resource is created per evaluation and torn down on
// every exit path.
type Evaluator struct {
	client reasoning.Client
	budget int
	warn   func(format string, args ...any)
}

// NewEvaluator returns an evaluator with the given payload character budget.
func NewEvaluator(client reasoning.Client, budget int) *Evaluator {
	return &Evaluator{
		client: client,
		budget: budget,
		warn:   log.Printf,
	}
}

// Evaluate runs the formal evaluation for a resolved policy, records the raw
// assessment on it, and returns the typed findings. When no variables
// resolved to concrete values, a single not-applicable finding is synthesized
// without calling the evaluation capability.
func (e *Evaluator) Evaluate(ctx context.Context, rp *types.ResolvedPolicy) ([]findings.Finding, error) {
	assigned := rp.AssignedVariables()
	if len(assigned) == 0 {
		rp.Assessment = findings.NotApplicableAssessment()
		return findings.FromAssessment(rp.Assessment, e.warn), nil
	}

	serialized, err := e.trimmedPayload(assigned)
	if err != nil {
		return nil, err
	}

	guardrail, err := e.createGuardrail(ctx, rp)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.client.DeleteGuardrail(ctx, guardrail.ID); err != nil {
			e.warn("Warning: failed to clean up guardrail %s: %v", guardrail.ID, err)
		}
	}()

	raw, err := e.client.ApplyGuardrail(ctx, guardrail, serialized)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed for policy %s: %w", rp.Name, err)
	}

	rp.Assessment = raw
	return findings.FromAssessment(rp.Assessment, e.warn), nil
}

// trimmedPayload serializes the variable assignments as premises plus the
// compliance claim, dropping the last variable and re-serializing until the
// payload fits the character budget. The drop order is declaration order, not
// relevance, so a decisive variable can be discarded before an unimportant
// one; the warning is emitted exactly once per evaluation.
func (e *Evaluator) trimmedPayload(assigned []types.ResolvedVariable) (string, error) {
	warned := false
	for {
		serialized, err := serializeAssignments(assigned)
		if err != nil {
			return "", err
		}
		if len(serialized) <= e.budget || len(assigned) == 0 {
			return serialized, nil
		}
		if !warned {
			warned = true
			e.warn("Warning: evaluating the policy with a reduced set of variables to try to get results from the system")
		}
		assigned = assigned[:len(assigned)-1]
	}
}

// serializeAssignments renders the premises/claims payload as compact JSON
// with quotes stripped, the form the evaluation capability expects.
func serializeAssignments(assigned []types.ResolvedVariable) (string, error) {
	premises := make(map[string]string, len(assigned))
	for _, v := range assigned {
		premises[v.Name] = *v.Value
	}
	body := map[string]any{
		"premises": premises,
		"claims":   map[string]string{types.GateVariable: "true"},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to serialize variable assignments: %w", err)
	}
	return strings.ReplaceAll(string(data), `"`, ""), nil
}

// createGuardrail binds the policy's resolved version to a fresh evaluation
// endpoint. The caller owns the returned guardrail and must delete it.
func (e *Evaluator) createGuardrail(ctx context.Context, rp *types.ResolvedPolicy) (*reasoning.Guardrail, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate guardrail name: %w", err)
	}
	name := strings.ReplaceAll(id.String(), "-", "")

	description := "Guardrail for policy: " + rp.Description
	if len(description) > 200 {
		description = description[:200]
	}

	guardrail, err := e.client.CreateGuardrail(ctx, name, description, rp.VersionedResourceID(), guardrailConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail for policy %s: %w", rp.Name, err)
	}
	return guardrail, nil
}
