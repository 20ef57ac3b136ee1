package sections

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/ledger"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// fakeLLM returns a canned JSON response and records whether it was called.
type fakeLLM struct {
	response string
	err      error
	called   bool
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.called = true
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.called = true
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSONWithDocuments(ctx context.Context, prompt string, docs []llm.Document, tier llm.ModelTier) (string, error) {
	f.called = true
	return f.response, f.err
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                       { return nil }

func newTestLedger(t *testing.T, refs []ledger.ChapterRef) *ledger.Ledger {
	t.Helper()
	led, err := ledger.New("spec.pdf", "hash", func(*ledger.Ledger) error { return nil })
	require.NoError(t, err)
	require.NoError(t, led.SetChapters(refs))
	return led
}

func TestExtract_PersistedFastPath(t *testing.T) {
	dir := t.TempDir()
	chapterDir := filepath.Join(dir, "chapter_03")
	require.NoError(t, os.MkdirAll(chapterDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chapterDir, "section_02.md"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(chapterDir, "section_01.md"), []byte("first"), 0o644))

	led := newTestLedger(t, []ledger.ChapterRef{
		{Title: "Wiring", Number: 3, MarkdownFile: "chapter_03/chapter.md", SectionsExtracted: true},
	})

	client := &fakeLLM{err: errors.New("must not be called")}
	e := NewExtractor(client, led, dir)

	sections, err := e.Extract(context.Background(), types.RawChapter{Title: "Wiring", Number: 3})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "ch3_section_01", sections[0].ID)
	assert.Equal(t, "Section 01", sections[0].Title)
	assert.Equal(t, 3, sections[0].ChapterNumber)
	assert.Equal(t, "first", sections[0].MarkdownContents)
	assert.Equal(t, "ch3_section_02", sections[1].ID)
	assert.False(t, client.called)
}

func TestExtract_FreshWhenNotMarked(t *testing.T) {
	led := newTestLedger(t, []ledger.ChapterRef{
		{Title: "Wiring", Number: 3, MarkdownFile: "chapter_03/chapter.md", SectionsExtracted: false},
	})

	client := &fakeLLM{response: `{"sections": [
		{"id": "ch3_sec1", "title": "Cable Ratings", "chapter_number": 3,
		 "markdown_contents": "## Cable Ratings\nAll cables must...",
		 "rationale": "Self-contained requirement block"}
	]}`}
	e := NewExtractor(client, led, t.TempDir())

	sections, err := e.Extract(context.Background(), types.RawChapter{Title: "Wiring", Number: 3, MarkdownContents: "..."})
	require.NoError(t, err)
	require.Len(t, sections, 1)

	assert.Equal(t, "ch3_sec1", sections[0].ID)
	assert.Equal(t, "Cable Ratings", sections[0].Title)
	assert.True(t, client.called)
}

func TestExtract_FreshWhenPersistedMissing(t *testing.T) {
	// Marked as extracted but the chapter directory is gone: degrade to model
	// extraction instead of failing.
	led := newTestLedger(t, []ledger.ChapterRef{
		{Title: "Wiring", Number: 3, MarkdownFile: "chapter_03/chapter.md", SectionsExtracted: true},
	})

	client := &fakeLLM{response: `{"sections": []}`}
	e := NewExtractor(client, led, t.TempDir())

	sections, err := e.Extract(context.Background(), types.RawChapter{Title: "Wiring", Number: 3})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.True(t, client.called)
}

func TestExtract_InvalidSectionRejected(t *testing.T) {
	client := &fakeLLM{response: `{"sections": [
		{"id": "", "title": "Cable Ratings", "chapter_number": 3, "markdown_contents": "..."}
	]}`}
	e := NewExtractor(client, nil, t.TempDir())

	_, err := e.Extract(context.Background(), types.RawChapter{Title: "Wiring", Number: 3})
	assert.Error(t, err)
}

func TestTitleFromStem(t *testing.T) {
	tests := []struct {
		stem     string
		expected string
	}{
		{"section_01", "Section 01"},
		{"section_12", "Section 12"},
		{"grounding_rules", "Grounding Rules"},
	}

	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			assert.Equal(t, tt.expected, titleFromStem(tt.stem))
		})
	}
}
