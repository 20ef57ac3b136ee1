package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

func TestWorkflowTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{WorkflowCompleted, true},
		{WorkflowFailed, true},
		{WorkflowCancelled, true},
		{"IN_PROGRESS", false},
		{"SCHEDULED", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			wf := Workflow{Status: tt.status}
			assert.Equal(t, tt.terminal, wf.Terminal())
		})
	}
}

func TestPolicySummaryTag(t *testing.T) {
	s := PolicySummary{Tags: []Tag{
		{Key: "document_uuid", Value: "abc"},
		{Key: "chapter_number", Value: "3"},
	}}

	assert.Equal(t, "abc", s.Tag("document_uuid"))
	assert.Equal(t, "3", s.Tag("chapter_number"))
	assert.Equal(t, "", s.Tag("missing"))
}

func TestPolicyFromService(t *testing.T) {
	detail := &PolicyDetail{
		ResourceID:     "svc:policy/abc123:2",
		PolicyID:       "abc123",
		Name:           "Ch03_Cable Ratings",
		Description:    "Cable rating requirements",
		Version:        "2",
		DefinitionHash: "deadbeef",
	}
	def := &Definition{
		Types: []DefinitionType{
			{Name: "CableClass", Description: "Cable insulation class", Values: []types.TypeValue{
				{Value: "CLASS_A", Description: "Class A"},
				{Value: "CABLECLASS_OTHER", Description: "Anything else"},
			}},
		},
		Variables: []DefinitionVariable{
			{Name: "MaxCurrent", Type: "NUMBER", Description: "Maximum rated current"},
			{Name: "Class", Type: "CableClass", Description: "Insulation class"},
			{Name: types.GateVariable, Type: "BOOL", Description: "Gate"},
		},
		Rules: []DefinitionRule{
			{ID: "R1", Expression: "IsCompliantWithFullPolicy => MaxCurrent > 10",
				AlternateExpression: "Max current must exceed 10 A"},
		},
	}

	p := PolicyFromService(detail, def)

	// Versioned suffix is stripped from the resource identifier.
	assert.Equal(t, "svc:policy/abc123", p.ResourceID)
	assert.Equal(t, "abc123", p.ID)
	assert.Equal(t, "2", p.Version)
	assert.Equal(t, "svc:policy/abc123:2", p.VersionedResourceID())

	// Builtin types are injected alongside the custom type.
	assert.Len(t, p.Types, 4)

	require.Len(t, p.Variables, 3)
	assert.True(t, p.Variables[1].Type.IsEnum())
	assert.True(t, p.Variables[2].Type.IsBuiltin())

	// The rule references only the variables appearing in its expression.
	require.Len(t, p.Rules, 1)
	varNames := make([]string, 0, len(p.Rules[0].Variables))
	for _, v := range p.Rules[0].Variables {
		varNames = append(varNames, v.Name)
	}
	assert.ElementsMatch(t, []string{types.GateVariable, "MaxCurrent"}, varNames)
}

func TestPolicyFromService_DraftKeepsResourceID(t *testing.T) {
	detail := &PolicyDetail{
		ResourceID: "svc:policy/abc123",
		PolicyID:   "abc123",
		Version:    types.VersionDraft,
	}

	p := PolicyFromService(detail, &Definition{})
	assert.Equal(t, "svc:policy/abc123", p.ResourceID)
	assert.Equal(t, "svc:policy/abc123", p.VersionedResourceID())
}

func TestListPolicies_Pagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/policies", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("maxResults"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("nextToken") == "" {
			fmt.Fprint(w, `{"policies": [{"policyArn": "p1", "name": "A", "version": "DRAFT"}], "nextToken": "t2"}`)
			return
		}
		require.Equal(t, "t2", r.URL.Query().Get("nextToken"))
		fmt.Fprint(w, `{"policies": [{"policyArn": "p2", "name": "B", "version": "1"}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	policies, err := client.ListPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "p1", policies[0].ResourceID)
	assert.Equal(t, "p2", policies[1].ResourceID)
}

func TestApplyGuardrail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/guardrails/g1/versions/1/apply", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Content     string `json:"content"`
			OutputScope string `json:"outputScope"`
			Source      string `json:"source"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FULL", body.OutputScope)
		assert.Equal(t, "OUTPUT", body.Source)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"findings": [{"valid": {}}, {"satisfiable": {}}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	findings, err := client.ApplyGuardrail(context.Background(), &Guardrail{ID: "g1", Version: "1"}, "premises:...")
	require.NoError(t, err)
	assert.Len(t, findings, 2)
}

func TestErrorStatusIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such policy", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, err := client.GetPolicy(context.Background(), "missing")
	require.Error(t, err)

	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	assert.Equal(t, "GetPolicy", svcErr.Op)
}
