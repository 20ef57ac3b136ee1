package findings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"valid", `{"valid": {"supportingRules": [{"identifier": "R1"}]}}`, KindValid},
		{"invalid", `{"invalid": {"contradictingRules": [{"identifier": "R1"}]}}`, KindInvalid},
		{"impossible", `{"impossible": {}}`, KindImpossible},
		{"satisfiable", `{"satisfiable": {"claimsTrueScenario": {"MaxCurrent": "12"}}}`, KindSatisfiable},
		{"too complex", `{"tooComplex": {}}`, KindTooComplex},
		{"no translations", `{"noTranslations": {}}`, KindNoTranslations},
		{"ambiguous", `{"translationAmbiguous": {"options": [{}, {}]}}`, KindTranslationAmbiguous},
		{"not applicable", `{"notApplicable": {}}`, KindNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(json.RawMessage(tt.raw))
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Kind())
		})
	}
}

func TestParse_EmptyAndUnmappedPayloads(t *testing.T) {
	for _, raw := range []string{`{}`, `{"someFutureVerdict": {}}`} {
		f, err := Parse(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Nil(t, f)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestFromAssessment_SkipsBadEntries(t *testing.T) {
	var warnings int
	entries := []json.RawMessage{
		json.RawMessage(`{"valid": {}}`),
		json.RawMessage(`broken`),
		json.RawMessage(`{}`),
		json.RawMessage(`{"invalid": {}}`),
	}

	result := FromAssessment(entries, func(format string, args ...any) { warnings++ })
	require.Len(t, result, 2)
	assert.Equal(t, KindValid, result[0].Kind())
	assert.Equal(t, KindInvalid, result[1].Kind())
	assert.Equal(t, 1, warnings)
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		finding Finding
		want    Severity
	}{
		{Valid{}, SeveritySuccess},
		{Impossible{}, SeverityError},
		{Invalid{}, SeverityError},
		{TooComplex{}, SeverityError},
		{NotApplicable{}, SeverityWarning},
		{NoTranslations{}, SeverityWarning},
		{Satisfiable{}, SeverityWarning},
		{TranslationAmbiguous{}, SeverityWarning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityOf(tt.finding), "kind %s", tt.finding.Kind())
	}
}

func TestNotApplicableAssessment_RoundTrips(t *testing.T) {
	result := FromAssessment(NotApplicableAssessment(), nil)
	require.Len(t, result, 1)
	assert.Equal(t, KindNotApplicable, result[0].Kind())
}

func ruleLookup() RuleLookup {
	value := "15"
	return &types.ResolvedPolicy{
		Rules: []types.ResolvedRule{
			{
				ID:                  "R1",
				Expression:          "IsCompliantWithFullPolicy => MaxCurrent <= 10",
				AlternateExpression: "Max current must not exceed 10 A",
				Variables: []types.ResolvedVariable{
					{Name: "MaxCurrent", Description: "Maximum rated current", Value: &value},
					{Name: types.GateVariable, Description: "Gate"},
				},
			},
		},
	}
}

func TestInsight_InvalidCitesRules(t *testing.T) {
	f := Invalid{ContradictingRules: []RuleRef{{ID: "R1"}}}

	insight := Insight(f, ruleLookup())
	assert.Contains(t, insight, "Non-Compliant")
	assert.Contains(t, insight, "Max current must not exceed 10 A")
	assert.Contains(t, insight, "**MaxCurrent**: **15**")
	// The gate variable is never shown as an assignment.
	assert.NotContains(t, insight, types.GateVariable+"**:")
}

func TestInsight_InvalidWithoutEvidence(t *testing.T) {
	insight := Insight(Invalid{}, nil)
	assert.Equal(t, "**Non-Compliant**: The proposal does not satisfy the policy requirements.", insight)

	// Cited rules the lookup cannot resolve degrade to the generic message.
	f := Invalid{ContradictingRules: []RuleRef{{ID: "R99"}}}
	assert.Contains(t, Insight(f, ruleLookup()), "does not satisfy the policy requirements")
}

func TestInsight_ValidVariants(t *testing.T) {
	withRules := Valid{SupportingRules: []RuleRef{{ID: "R1"}, {ID: "R2"}}}
	assert.Contains(t, Insight(withRules, nil), "Validated against 2 rule(s)")

	assert.Contains(t, Insight(Valid{}, nil), "review the variable")
}

func TestInsights_Fallbacks(t *testing.T) {
	assert.Equal(t, "reviewer notes", Insights(nil, nil, "reviewer notes"))
	assert.Equal(t, "No insights available for this resolved policy", Insights(nil, nil, ""))

	joined := Insights([]Finding{Valid{}, Satisfiable{}}, nil, "")
	assert.Contains(t, joined, "**Compliant**")
	assert.Contains(t, joined, "**Satisfiable**")
}
