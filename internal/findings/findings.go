// Package findings defines the typed verdicts returned by the formal
// compliance evaluator and their mapping to severity and human-readable
// insights.
package findings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// Kind identifies the verdict variant of a finding.
type Kind string

// Finding kinds, one per verdict variant the evaluator can return.
const (
	KindNotApplicable        Kind = "not_applicable"
	KindImpossible           Kind = "impossible"
	KindInvalid              Kind = "invalid"
	KindNoTranslations       Kind = "no_translations"
	KindSatisfiable          Kind = "satisfiable"
	KindTooComplex           Kind = "too_complex"
	KindTranslationAmbiguous Kind = "translation_ambiguous"
	KindValid                Kind = "valid"
)

// Severity classifies a finding for reporting.
type Severity string

// Severity levels derived from the finding kind.
const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is a typed verdict classifying the logical relationship between the
// resolved variable assignments and a policy's rules. Exactly one concrete
// type exists per verdict kind, so a finding can never carry two variants.
type Finding interface {
	Kind() Kind
}

// RuleRef identifies a policy rule cited as evidence by the evaluator.
type RuleRef struct {
	ID string `json:"identifier"`
}

// Scenario is an example variable assignment demonstrating a logical outcome.
// The evaluator's scenario shape is passed through untyped.
type Scenario map[string]any

// LogicWarning flags a logic issue with the evaluator's translation of the
// input.
type LogicWarning map[string]any

// Translation is the evaluator's logical translation of the input premises.
type Translation map[string]any

// TranslationOption is one possible logical interpretation of ambiguous
// input.
type TranslationOption struct {
	Examples []Translation `json:"examples,omitempty"`
}

// NotApplicable means the policy does not apply to the proposal; it is also
// synthesized locally when no variables resolve.
type NotApplicable struct{}

// Impossible means no valid claims can be made because the premises or the
// policy rules contradict each other.
type Impossible struct {
	ContradictingRules []RuleRef     `json:"contradictingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
	Translation        *Translation  `json:"translation,omitempty"`
}

// Invalid means the claims are logically false under the established rules.
type Invalid struct {
	ContradictingRules []RuleRef     `json:"contradictingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
	Translation        *Translation  `json:"translation,omitempty"`
}

// NoTranslations means no relevant logical information could be extracted
// from the input.
type NoTranslations struct{}

// Satisfiable means the claims could be true or false depending on additional
// assumptions.
type Satisfiable struct {
	ClaimsTrueScenario  *Scenario     `json:"claimsTrueScenario,omitempty"`
	ClaimsFalseScenario *Scenario     `json:"claimsFalseScenario,omitempty"`
	LogicWarning        *LogicWarning `json:"logicWarning,omitempty"`
	Translation         *Translation  `json:"translation,omitempty"`
}

// TooComplex means the input exceeds the evaluator's processing capacity.
type TooComplex struct{}

// TranslationAmbiguous means the input has multiple valid logical
// interpretations.
type TranslationAmbiguous struct {
	DifferenceScenarios []Scenario          `json:"differenceScenarios,omitempty"`
	Options             []TranslationOption `json:"options,omitempty"`
}

// Valid means the claims are definitively true and logically implied by the
// premises.
type Valid struct {
	ClaimsTrueScenario *Scenario     `json:"claimsTrueScenario,omitempty"`
	SupportingRules    []RuleRef     `json:"supportingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
	Translation        *Translation  `json:"translation,omitempty"`
}

// Kind implementations for each variant.
func (NotApplicable) Kind() Kind        { return KindNotApplicable }
func (Impossible) Kind() Kind           { return KindImpossible }
func (Invalid) Kind() Kind              { return KindInvalid }
func (NoTranslations) Kind() Kind       { return KindNoTranslations }
func (Satisfiable) Kind() Kind          { return KindSatisfiable }
func (TooComplex) Kind() Kind           { return KindTooComplex }
func (TranslationAmbiguous) Kind() Kind { return KindTranslationAmbiguous }
func (Valid) Kind() Kind                { return KindValid }

// SeverityOf maps a finding kind to its reporting severity: success only for
// valid, error for impossible/invalid/too-complex, warning otherwise.
func SeverityOf(f Finding) Severity {
	switch f.Kind() {
	case KindValid:
		return SeveritySuccess
	case KindImpossible, KindInvalid, KindTooComplex:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// assessmentEntry mirrors the evaluator's wire union. At most one field is
// populated per entry.
type assessmentEntry struct {
	NotApplicable        *NotApplicable        `json:"notApplicable,omitempty"`
	Impossible           *Impossible           `json:"impossible,omitempty"`
	Invalid              *Invalid              `json:"invalid,omitempty"`
	NoTranslations       *NoTranslations       `json:"noTranslations,omitempty"`
	Satisfiable          *Satisfiable          `json:"satisfiable,omitempty"`
	TooComplex           *TooComplex           `json:"tooComplex,omitempty"`
	TranslationAmbiguous *TranslationAmbiguous `json:"translationAmbiguous,omitempty"`
	Valid                *Valid                `json:"valid,omitempty"`
}

// Parse decodes a single assessment entry into its finding variant. It
// returns (nil, nil) for empty or unmapped payloads so that spurious empty
// objects never surface as findings.
func Parse(raw json.RawMessage) (Finding, error) {
	var entry assessmentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse assessment entry: %w", err)
	}
	switch {
	case entry.NotApplicable != nil:
		return *entry.NotApplicable, nil
	case entry.Impossible != nil:
		return *entry.Impossible, nil
	case entry.Invalid != nil:
		return *entry.Invalid, nil
	case entry.NoTranslations != nil:
		return *entry.NoTranslations, nil
	case entry.Satisfiable != nil:
		return *entry.Satisfiable, nil
	case entry.TooComplex != nil:
		return *entry.TooComplex, nil
	case entry.TranslationAmbiguous != nil:
		return *entry.TranslationAmbiguous, nil
	case entry.Valid != nil:
		return *entry.Valid, nil
	}
	return nil, nil
}

// FromAssessment maps a raw assessment payload into typed findings, skipping
// empty or unparseable entries.
func FromAssessment(entries []json.RawMessage, warn func(format string, args ...any)) []Finding {
	var result []Finding
	for _, raw := range entries {
		f, err := Parse(raw)
		if err != nil {
			if warn != nil {
				warn("failed to parse finding: %v", err)
			}
			continue
		}
		if f != nil {
			result = append(result, f)
		}
	}
	return result
}

// NotApplicableAssessment is the synthetic raw assessment recorded when a
// policy has no resolved variables and the evaluator is never called.
func NotApplicableAssessment() []json.RawMessage {
	return []json.RawMessage{json.RawMessage(`{"notApplicable":{}}`)}
}

// RuleLookup resolves rule identifiers to resolved rules so that insights can
// show the violated rule text and its variable assignments. The owning policy
// is passed explicitly; findings hold no back-reference to it.
type RuleLookup interface {
	Rule(id string) (types.ResolvedRule, bool)
}

// Insight renders a human-readable explanation of the finding. Rules is only
// consulted for variants that cite rule evidence and may be nil otherwise.
func Insight(f Finding, rules RuleLookup) string {
	switch v := f.(type) {
	case NotApplicable:
		return "**Not Applicable**: Could not extract any findings related to the policy. Maybe it does not apply?"
	case Impossible:
		return "**Impossible**: No valid logical conclusions can be drawn due to contradictions in the premises or policy rules."
	case Invalid:
		return invalidInsight(v, rules)
	case NoTranslations:
		return "**No Translation**: Cannot extract relevant logical information from the input for validation."
	case Satisfiable:
		return "**Satisfiable**: The policy might be compliant, but additional information is needed. " +
			"Some variables or assumptions are missing to make a complete assessment."
	case TooComplex:
		return "**Too Complex**: Cannot evaluate the policies because the input is too complex " +
			"(typically there are too many variables)."
	case TranslationAmbiguous:
		if n := len(v.Options); n > 0 {
			return fmt.Sprintf("**Ambiguous**: The input has %d valid logical interpretations. "+
				"Additional context or clarification is required (e.g., date formats, units, terminology).", n)
		}
		return "**Ambiguous**: The input has multiple valid interpretations requiring clarification."
	case Valid:
		if n := len(v.SupportingRules); n > 0 {
			return fmt.Sprintf("**Compliant**: The proposal satisfies this policy. Validated against %d rule(s).", n)
		}
		return "**Compliant**: The proposal satisfies this policy as interpreted, please review the variable " +
			"assignments to ensure that they have been understood properly."
	}
	return "No finding available"
}

// invalidInsight lists each contradicted rule with its variable assignments.
func invalidInsight(f Invalid, rules RuleLookup) string {
	if len(f.ContradictingRules) == 0 || rules == nil {
		return "**Non-Compliant**: The proposal does not satisfy the policy requirements."
	}

	var sb strings.Builder
	cited := 0
	for _, ref := range f.ContradictingRules {
		rule, ok := rules.Rule(ref.ID)
		if !ok {
			continue
		}
		cited++
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", rule.ID, rule.AlternateExpression))
		for _, v := range rule.Variables {
			if v.Name == types.GateVariable {
				continue
			}
			value := "*Unknown*"
			if v.Value != nil {
				value = "**" + *v.Value + "**"
			}
			sb.WriteString(fmt.Sprintf("    + **%s**: %s (%s)\n", v.Name, value, v.Description))
		}
	}
	if cited == 0 {
		return "**Non-Compliant**: The proposal does not satisfy the policy requirements."
	}
	plural := ""
	if cited > 1 {
		plural = "s"
	}
	return fmt.Sprintf("**Non-Compliant**: The proposal appears to violate the following rule%s:\n\n%s", plural, sb.String())
}

// Insights joins the insights of all findings; when there are none it falls
// back to reviewer comments, else a fixed message.
func Insights(all []Finding, rules RuleLookup, comments string) string {
	if len(all) > 0 {
		parts := make([]string, 0, len(all))
		for _, f := range all {
			parts = append(parts, Insight(f, rules))
		}
		return strings.Join(parts, "\n\n")
	}
	if comments != "" {
		return comments
	}
	return "No insights available for this resolved policy"
}
