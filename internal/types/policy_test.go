package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarType(t *testing.T) {
	enum := VarType{Name: "CableClass", Values: []TypeValue{{Value: "CLASS_A"}}}
	assert.True(t, enum.IsEnum())
	assert.False(t, enum.IsBuiltin())

	for _, name := range []string{"BOOL", "INT", "NUMBER", "number"} {
		assert.True(t, VarType{Name: name}.IsBuiltin(), name)
	}
	assert.False(t, VarType{Name: "STRING"}.IsBuiltin())
}

func TestBuiltinTypes(t *testing.T) {
	builtins := BuiltinTypes()
	require.Len(t, builtins, 3)
	for _, bt := range builtins {
		assert.True(t, bt.IsBuiltin(), bt.Name)
		assert.False(t, bt.IsEnum(), bt.Name)
	}
}

func TestPolicy_VersionedResourceID(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   string
	}{
		{"unbuilt", Policy{}, ""},
		{"draft", Policy{ResourceID: "svc:p", Version: VersionDraft}, "svc:p"},
		{"published", Policy{ResourceID: "svc:p", Version: "3"}, "svc:p:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.VersionedResourceID())
		})
	}
}

func TestPolicy_Variable(t *testing.T) {
	p := Policy{Variables: []Variable{
		{Name: "MaxCurrent"},
		{Name: GateVariable},
	}}

	v, ok := p.Variable("MaxCurrent")
	require.True(t, ok)
	assert.Equal(t, "MaxCurrent", v.Name)

	_, ok = p.Variable("Unknown")
	assert.False(t, ok)
}

func TestVariablesInExpression(t *testing.T) {
	vars := []Variable{
		{Name: "MaxCurrent"},
		{Name: "CableClass"},
		{Name: GateVariable},
	}

	tests := []struct {
		name       string
		expression string
		want       []string
	}{
		{
			"gate implication",
			GateVariable + " => MaxCurrent > 10",
			[]string{"MaxCurrent", GateVariable},
		},
		{
			"no references",
			"true => false",
			nil,
		},
		{
			// Token matching is exact: substrings of longer identifiers do
			// not count as references.
			"substring does not match",
			GateVariable + " => MaxCurrentLimit > 10",
			[]string{GateVariable},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariablesInExpression(tt.expression, vars)
			names := make([]string, 0, len(got))
			for _, v := range got {
				names = append(names, v.Name)
			}
			if tt.want == nil {
				assert.Empty(t, names)
				return
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}
