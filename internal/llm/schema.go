// Package llm - schema.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text
// or attached documents.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "PolicyVariables", "DocumentInfo")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string   // JSON field name
	Type        string   // Type hint: "string", "[]string", "map[string]string"
	Description string   // Description for the LLM
	Required    bool     // Whether this field is required
	Nullable    bool     // Whether null is an acceptable value
	Enum        []string // Closed set of allowed values, when non-empty
	Default     string   // Value to use when the field cannot be determined
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// An empty inputText omits the input block, for prompts whose source material
// is attached as documents instead.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if len(field.Enum) > 0 {
			quoted := make([]string, len(field.Enum))
			for j, v := range field.Enum {
				quoted[j] = fmt.Sprintf("%q", v)
			}
			typeHint = strings.Join(quoted, " | ")
		}
		if typeHint == "" {
			typeHint = "string"
		}
		if field.Nullable {
			typeHint += " | null"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if field.Default != "" {
			sb.WriteString(fmt.Sprintf(" (default: %q)", field.Default))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the source material, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	// Input text
	if inputText != "" {
		sb.WriteString("\nInput text:\n\"\"\"\n")
		sb.WriteString(inputText)
		sb.WriteString("\n\"\"\"\n")
	}

	return sb.String()
}
