package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

func strp(s string) *string { return &s }

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func sampleChapters() []Chapter {
	compliant := &types.ResolvedPolicy{
		Name:        "Ch01_Cable Ratings",
		Description: "Cable rating requirements",
		Variables: []types.ResolvedVariable{
			{Name: "MaxCurrent", Description: "Maximum rated current", Value: strp("12")},
			{Name: "CableClass", Description: "Insulation class"},
		},
		Rules: []types.ResolvedRule{
			{ID: "R1", AlternateExpression: "Max current must not exceed 16 A"},
		},
		Assessment: []json.RawMessage{json.RawMessage(`{"valid": {}}`)},
	}
	violated := &types.ResolvedPolicy{
		Name:        "Ch02_Grounding",
		Description: "Grounding requirements",
		Assessment:  []json.RawMessage{json.RawMessage(`{"invalid": {}}`)},
	}
	return []Chapter{
		{Title: "Cable Ratings", Policies: []*types.ResolvedPolicy{compliant}},
		{Title: "Grounding", Policies: []*types.ResolvedPolicy{violated}},
	}
}

func TestGenerate(t *testing.T) {
	spec := writePDF(t, "spec.pdf")
	proposal := writePDF(t, "proposal.pdf")

	var buf bytes.Buffer
	err := Generate(&buf, "Electrical Installation Spec", spec, []string{proposal}, sampleChapters())
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, "Electrical Installation Spec")
	assert.Contains(t, html, "Ch01_Cable Ratings")
	assert.Contains(t, html, "finding-success")
	assert.Contains(t, html, "finding-error")
	assert.Contains(t, html, "<strong>Compliant</strong>")
	assert.Contains(t, html, "Max current must not exceed 16 A")

	// Only assigned variables are listed.
	assert.Contains(t, html, "Value: 12")
	assert.NotContains(t, html, "CableClass")

	// Both PDFs are embedded and the proposal tab is named after its file.
	assert.Contains(t, html, "proposal.pdf")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("data:application/pdf;base64,")))
}

func TestGenerate_MissingPDF(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(&buf, "Spec", filepath.Join(t.TempDir(), "absent.pdf"), nil, nil)
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	spec := writePDF(t, "spec.pdf")
	out := filepath.Join(t.TempDir(), "report.html")

	require.NoError(t, WriteFile(out, "Spec", spec, nil, sampleChapters()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
}

func TestInsightHTML(t *testing.T) {
	got := insightHTML("**Compliant**: proposal <ok>\nnext line")
	s := string(got)
	assert.Contains(t, s, "<strong>Compliant</strong>")
	assert.Contains(t, s, "&lt;ok&gt;")
	assert.Contains(t, s, "<br>")

	// Unbalanced markers never leave a tag open.
	assert.Contains(t, string(insightHTML("**dangling")), "</strong>")
}
