package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"MaxCurrent\": \"12.5\"}\n```",
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"MaxCurrent\": \"12.5\"}\n```",
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"MaxCurrent\": \"12.5\"}\n```",
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"MaxCurrent": "12.5"}`,
			expected: `{"MaxCurrent": "12.5"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "As requested, here is the JSON:\n{\"CableClass\": \"CLASS_A\"}",
			expected: `{"CableClass": "CLASS_A"}`,
		},
		{
			name:     "conversational preamble",
			input:    "Based on the proposal documents provided, I've extracted the rated parameters. Here's the structured output:\n\n{\"MaxCurrent\": \"15\", \"CableClass\": \"CLASS_A\"}",
			expected: `{"MaxCurrent": "15", "CableClass": "CLASS_A"}`,
		},
		{
			name:     "preamble with multiple sentences",
			input:    "I analyzed the chapter. It contains one requirement block. Here is the result: {\"sections\": []}",
			expected: `{"sections": []}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Here are the section identifiers:\n[\"ch3_sec1\", \"ch3_sec2\"]",
			expected: `["ch3_sec1", "ch3_sec2"]`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"MaxCurrent\": \"12.5\"}\n\nLet me know if you need anything else!",
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "nested objects",
			input:    "Output:\n{\"chapter\": {\"number\": 3}}",
			expected: `{"chapter": {"number": 3}}`,
		},
		{
			name:     "JSON with escaped quotes",
			input:    "Result: {\"title\": \"Cables rated \\\"heavy duty\\\"\"}",
			expected: `{"title": "Cables rated \"heavy duty\""}`,
		},
		{
			name:     "deeply nested",
			input:    "Here: {\"a\": {\"b\": {\"c\": {\"d\": \"deep\"}}}}",
			expected: `{"a": {"b": {"c": {"d": "deep"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple object",
			input:    `{"MaxCurrent": "12.5"}`,
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "nested objects",
			input:    `{"chapter": {"number": 3}}`,
			expected: `{"chapter": {"number": 3}}`,
		},
		{
			name:     "object with array",
			input:    `{"chapters": [1, 2, 3]}`,
			expected: `{"chapters": [1, 2, 3]}`,
		},
		{
			name:     "object with trailing text",
			input:    `{"MaxCurrent": "12.5"} and some more text`,
			expected: `{"MaxCurrent": "12.5"}`,
		},
		{
			name:     "string with braces inside",
			input:    `{"expression": "Voltage in {110, 230}"}`,
			expected: `{"expression": "Voltage in {110, 230}"}`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with brace",
			input:    "not json",
			expected: "",
		},
		{
			name:     "unbalanced object",
			input:    `{"MaxCurrent": "12.5"`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONObject(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONObject() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple array",
			input:    `["CLASS_A", "CLASS_B"]`,
			expected: `["CLASS_A", "CLASS_B"]`,
		},
		{
			name:     "nested arrays",
			input:    `[[1, 2], [3, 4]]`,
			expected: `[[1, 2], [3, 4]]`,
		},
		{
			name:     "array of objects",
			input:    `[{"id": "ch1_sec1"}, {"id": "ch1_sec2"}]`,
			expected: `[{"id": "ch1_sec1"}, {"id": "ch1_sec2"}]`,
		},
		{
			name:     "array with trailing text",
			input:    `[1, 2, 3] extra stuff`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with bracket",
			input:    "not array",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONArray(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONArray() = %q, want %q", result, tt.expected)
			}
		})
	}
}
