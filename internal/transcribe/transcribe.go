// Package transcribe converts a source specification PDF into Markdown, one
// chapter at a time, together with the document's front matter and metadata.
// The conversion runs over a single stateful model session so the PDF is
// uploaded exactly once and later requests only reference it.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/generative-ai-go/genai"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/prompts"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// DocumentInfo is the document-level metadata extracted from the source
// specification.
type DocumentInfo struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Revision        string `json:"revision"`
	PublicationDate string `json:"publication_date"`
	NumChapters     int    `json:"num_chapters"`
}

// Transcriber extracts metadata, front matter, and chapters from a source
// specification document.
type Transcriber interface {
	// DocumentInfo extracts the document-level metadata.
	DocumentInfo(ctx context.Context) (*DocumentInfo, error)
	// Introduction converts everything before chapter 1 to Markdown.
	Introduction(ctx context.Context) (string, error)
	// Chapter converts one chapter (1-based) to Markdown.
	Chapter(ctx context.Context, number int) (types.RawChapter, error)
}

// GeminiTranscriber implements Transcriber over a Gemini chat session. The
// session is created lazily on first use: constructing a transcriber never
// touches the network.
type GeminiTranscriber struct {
	client  *llm.GeminiClient
	docName string
	docData []byte
	session *genai.ChatSession
}

// NewGeminiTranscriber returns a transcriber for a PDF document. docName is
// the file stem used to refer to the document in conversation.
func NewGeminiTranscriber(client *llm.GeminiClient, docName string, docData []byte) *GeminiTranscriber {
	return &GeminiTranscriber{
		client:  client,
		docName: docName,
		docData: docData,
	}
}

// ensureSession opens the chat session and uploads the document on first use.
func (t *GeminiTranscriber) ensureSession(ctx context.Context) error {
	if t.session != nil {
		return nil
	}

	session, err := t.client.StartChat(llm.TierStandard)
	if err != nil {
		return fmt.Errorf("transcribe: failed to start session: %w", err)
	}

	contextMsg := prompts.Format(prompts.MustGet("transcription.json", "document-context"),
		map[string]string{"Name": t.docName})
	_, err = session.SendMessage(ctx,
		genai.Text(prompts.MustGet("transcription.json", "system")),
		genai.Blob{MIMEType: "application/pdf", Data: t.docData},
		genai.Text(contextMsg))
	if err != nil {
		return fmt.Errorf("transcribe: failed to upload document: %w", err)
	}

	t.session = session
	return nil
}

// send sends a prompt on the session and returns the response text.
func (t *GeminiTranscriber) send(ctx context.Context, prompt string) (string, error) {
	if err := t.ensureSession(ctx); err != nil {
		return "", err
	}
	resp, err := t.session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("transcribe: request failed: %w", err)
	}
	return llm.ResponseText(resp)
}

// DocumentInfo extracts title, author, revision, publication date, and the
// chapter count from the document.
func (t *GeminiTranscriber) DocumentInfo(ctx context.Context) (*DocumentInfo, error) {
	schema := llm.ExtractionSchema{
		Name: "DocumentInfo",
		Description: prompts.Format(prompts.MustGet("transcription.json", "extract-metadata"),
			map[string]string{"Name": t.docName}),
		Fields: []llm.SchemaField{
			{Name: "title", Type: "string", Description: "Document title", Required: true},
			{Name: "author", Type: "string", Description: "Document author or issuing organization"},
			{Name: "revision", Type: "string", Description: "Document revision or version identifier"},
			{Name: "publication_date", Type: "string", Description: "Publication date as printed in the document"},
			{Name: "num_chapters", Type: "number", Description: "Total number of chapters", Required: true},
		},
	}

	text, err := t.send(ctx, llm.BuildExtractionPrompt(schema, ""))
	if err != nil {
		return nil, err
	}

	var info DocumentInfo
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(text)), &info); err != nil {
		return nil, fmt.Errorf("transcribe: failed to parse document metadata: %w", err)
	}
	return &info, nil
}

// Introduction converts the document's front matter (everything before
// chapter 1) to Markdown.
func (t *GeminiTranscriber) Introduction(ctx context.Context) (string, error) {
	return t.send(ctx, prompts.MustGet("transcription.json", "convert-introduction"))
}

// rawChapterPayload is the JSON shape requested for a chapter conversion.
type rawChapterPayload struct {
	Title            string `json:"title"`
	MarkdownContents string `json:"markdown_contents"`
}

// Chapter converts a single chapter to Markdown, returning its title and
// contents.
func (t *GeminiTranscriber) Chapter(ctx context.Context, number int) (types.RawChapter, error) {
	schema := llm.ExtractionSchema{
		Name: "Chapter",
		Description: prompts.Format(prompts.MustGet("transcription.json", "convert-chapter"),
			map[string]string{"Number": strconv.Itoa(number)}),
		Fields: []llm.SchemaField{
			{Name: "title", Type: "string", Description: "Chapter title without the chapter number", Required: true},
			{Name: "markdown_contents", Type: "string", Description: "Full chapter contents as Markdown", Required: true},
		},
	}

	text, err := t.send(ctx, llm.BuildExtractionPrompt(schema, ""))
	if err != nil {
		return types.RawChapter{}, err
	}

	var payload rawChapterPayload
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(text)), &payload); err != nil {
		return types.RawChapter{}, fmt.Errorf("transcribe: failed to parse chapter %d: %w", number, err)
	}

	return types.RawChapter{
		Title:            payload.Title,
		Number:           number,
		MarkdownContents: payload.MarkdownContents,
	}, nil
}
