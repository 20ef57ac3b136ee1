// Package sections splits transcribed chapters into self-contained sections
// that carry verifiable technical requirements. Extraction prefers previously
// persisted section files; the model is only consulted when no usable
// persisted sections exist.
package sections

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/ledger"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/prompts"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// Extractor extracts sections from chapters, consulting the processing ledger
// and persisted section files before falling back to model extraction.
type Extractor struct {
	client    llm.Client
	led       *ledger.Ledger
	outputDir string
	validate  *validator.Validate
}

// NewExtractor returns a section extractor. led may be nil, in which case
// every chapter goes through model extraction.
func NewExtractor(client llm.Client, led *ledger.Ledger, outputDir string) *Extractor {
	return &Extractor{
		client:    client,
		led:       led,
		outputDir: outputDir,
		validate:  validator.New(),
	}
}

// Extract returns the sections of a chapter. When the ledger records the
// chapter's sections as already extracted, the persisted section files are
// loaded instead of re-querying the model; any failure on that path degrades
// silently to fresh extraction.
func (e *Extractor) Extract(ctx context.Context, chapter types.RawChapter) ([]types.Section, error) {
	if e.led != nil {
		if ref := e.led.ChapterRef(chapter.Number); ref != nil && ref.SectionsExtracted {
			if sections := e.loadPersisted(chapter.Number); len(sections) > 0 {
				log.Printf("Loaded %d persisted sections for chapter %d", len(sections), chapter.Number)
				return sections, nil
			}
		}
	}

	return e.extractFresh(ctx, chapter)
}

// loadPersisted scans the chapter directory for section_*.md files and
// rebuilds sections from them. Section IDs derive from the file stem so that
// repeated loads of the same tree always produce the same IDs.
func (e *Extractor) loadPersisted(chapterNumber int) []types.Section {
	chapterDir := filepath.Join(e.outputDir, fmt.Sprintf("chapter_%02d", chapterNumber))
	entries, err := os.ReadDir(chapterDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: failed to scan %s: %v", chapterDir, err)
		}
		return nil
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "section_") && strings.HasSuffix(name, ".md") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	var sections []types.Section
	for _, name := range files {
		contents, err := os.ReadFile(filepath.Join(chapterDir, name))
		if err != nil {
			log.Printf("Warning: failed to load section %s: %v", name, err)
			continue
		}
		stem := strings.TrimSuffix(name, ".md")
		sections = append(sections, types.Section{
			ID:               fmt.Sprintf("ch%d_%s", chapterNumber, stem),
			Title:            titleFromStem(stem),
			ChapterNumber:    chapterNumber,
			MarkdownContents: string(contents),
		})
	}
	return sections
}

// extractFresh asks the model to split the chapter into sections.
func (e *Extractor) extractFresh(ctx context.Context, chapter types.RawChapter) ([]types.Section, error) {
	log.Printf("Extracting sections from chapter %d: %s", chapter.Number, chapter.Title)

	prompt := prompts.MustGet("sections.json", "system") + "\n\n" +
		prompts.Format(prompts.MustGet("sections.json", "extract-sections"), map[string]string{
			"Number":  fmt.Sprintf("%d", chapter.Number),
			"Title":   chapter.Title,
			"Content": chapter.MarkdownContents,
		})

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("sections: extraction failed for chapter %d: %w", chapter.Number, err)
	}

	var list types.SectionList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("sections: failed to parse extraction response for chapter %d: %w", chapter.Number, err)
	}

	for i := range list.Sections {
		if err := e.validate.Struct(&list.Sections[i]); err != nil {
			return nil, fmt.Errorf("sections: invalid section %d in chapter %d: %w", i, chapter.Number, err)
		}
	}

	log.Printf("Extracted %d sections for chapter %d", len(list.Sections), chapter.Number)
	return list.Sections, nil
}

// titleFromStem turns a file stem like "section_01" into "Section 01".
func titleFromStem(stem string) string {
	words := strings.Split(strings.ReplaceAll(stem, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
