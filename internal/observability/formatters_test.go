package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/findings"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

func strp(s string) *string { return &s }

func TestPrintPolicy(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintPolicy(&types.Policy{
		Name:    "Ch01_Cable Ratings",
		Version: "DRAFT",
		Variables: []types.Variable{
			{Name: "MaxCurrent", Type: types.VarType{Name: "NUMBER"}},
			{Name: "CableClass", Type: types.VarType{Name: "CableClass"}},
		},
		Rules: []types.Rule{
			{ID: "R1", AlternateExpression: "Max current must not exceed 16 A"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "POLICY")
	assert.Contains(t, out, "Ch01_Cable Ratings")
	assert.Contains(t, out, "MaxCurrent (NUMBER)")
	assert.Contains(t, out, "Max current must not exceed 16 A")
}

func TestPrintPolicy_TruncatesLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	vars := make([]types.Variable, 8)
	for i := range vars {
		vars[i] = types.Variable{Name: "Var" + strings.Repeat("x", i)}
	}
	p.PrintPolicy(&types.Policy{Name: "Ch01_Big", Variables: vars})

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintPolicy_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPolicy(nil)
	assert.Empty(t, buf.String())
}

func TestPrintResolvedPolicy(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResolvedPolicy(&types.ResolvedPolicy{
		Name: "Ch01_Cable Ratings",
		Variables: []types.ResolvedVariable{
			{Name: "MaxCurrent", Value: strp("12")},
			{Name: "CableClass"},
			{Name: types.GateVariable, Value: strp("true")},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "RESOLVED POLICY")
	assert.Contains(t, out, "Resolved 1 of 3 variables")
	assert.Contains(t, out, "MaxCurrent = 12")
	assert.NotContains(t, out, types.GateVariable)
}

func TestPrintFindingSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFindingSummary("Ch01_Cable Ratings", []findings.Finding{
		findings.Valid{},
		findings.Satisfiable{},
		findings.Invalid{},
	})

	out := buf.String()
	assert.Contains(t, out, "COMPLIANCE FINDINGS")
	assert.Contains(t, out, "✓ valid")
	assert.Contains(t, out, "⚠ satisfiable")
	assert.Contains(t, out, "✗ invalid")
}

func TestPrintFindingSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFindingSummary("Ch01_Cable Ratings", nil)
	assert.Contains(t, buf.String(), "NO FINDINGS")
}
