// Package document orchestrates full-document processing: transcription,
// section extraction, policy creation, and compliance checking, with the
// processing ledger and content-addressed cache threaded through every stage.
package document

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/cache"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/compliance"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/config"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/ledger"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/policy"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/reasoning"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/resolve"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/schemas"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/sections"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/transcribe"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// Deps are the collaborators a Document is wired with.
type Deps struct {
	Config      *config.Config
	Transcriber transcribe.Transcriber
	LLM         llm.Client
	Reasoning   reasoning.Client
	Store       *cache.Store
}

// ChapterCompliance groups the compliance results of one chapter.
type ChapterCompliance struct {
	Number   int
	Title    string
	Policies []*types.ResolvedPolicy
}

// Document drives the processing pipeline for one source specification.
// Chapter and section processing is strictly sequential; a Document must not
// be shared across goroutines.
type Document struct {
	deps Deps

	path     string
	stem     string
	fileHash string

	led       *ledger.Ledger
	extractor *sections.Extractor
	builder   *policy.Builder
	resolver  *resolve.Resolver
	evaluator *compliance.Evaluator

	// Explicit two-state loading: false means not loaded yet. There is no
	// hidden loading on field access.
	metadataLoaded bool
	chaptersLoaded bool
	chapters       []types.RawChapter
}

// Open validates the source file, computes its content digest, and loads or
// creates the document's processing ledger.
func Open(deps Deps, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read source file %s: %w", path, err)
	}
	if info.Size() > deps.Config.MaxDocumentSizeBytes() {
		return nil, fmt.Errorf("source file %s exceeds the %.1f MB size limit", path, deps.Config.MaxDocumentSizeMB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read source file %s: %w", path, err)
	}
	fileHash := cache.Digest(data)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ledgerPath := filepath.Join(deps.Config.OutputDir, stem+".metadata.json")
	save := ledger.SaveToFile(ledgerPath)

	if raw, err := os.ReadFile(ledgerPath); err == nil {
		if err := schemas.ValidateMetadata(raw); err != nil {
			log.Printf("Warning: metadata file %s does not match the expected shape: %v", ledgerPath, err)
		}
	}

	led, err := ledger.Load(ledgerPath, fileHash, save)
	if err != nil {
		return nil, err
	}
	if led == nil {
		led, err = ledger.New(path, fileHash, save)
		if err != nil {
			return nil, err
		}
		if err := led.Persist(); err != nil {
			return nil, err
		}
	}

	d := &Document{
		deps:      deps,
		path:      path,
		stem:      stem,
		fileHash:  fileHash,
		led:       led,
		extractor: sections.NewExtractor(deps.LLM, led, deps.Config.OutputDir),
		builder:   policy.NewBuilder(deps.Reasoning, led.DocumentUUID, deps.Config.PollInterval),
		resolver:  resolve.NewResolver(deps.LLM, deps.Store),
		evaluator: compliance.NewEvaluator(deps.Reasoning, deps.Config.PayloadBudget),
	}
	d.metadataLoaded = led.Title != ""
	return d, nil
}

// Ledger exposes the document's processing ledger.
func (d *Document) Ledger() *ledger.Ledger {
	return d.led
}

// EnsureMetadata loads the document-level metadata into the ledger if it is
// not there yet.
func (d *Document) EnsureMetadata(ctx context.Context) error {
	if d.metadataLoaded {
		return nil
	}

	log.Printf("Extracting document metadata from %s", d.stem)
	info, err := d.deps.Transcriber.DocumentInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract document metadata: %w", err)
	}

	d.led.Title = info.Title
	d.led.Author = info.Author
	d.led.Revision = info.Revision
	d.led.PublicationDate = info.PublicationDate
	d.led.NumChapters = info.NumChapters
	if err := d.led.Touch(); err != nil {
		return err
	}

	d.metadataLoaded = true
	return nil
}

// EnsureChapters transcribes and persists the introduction and every chapter
// that is not persisted yet, then loads all chapter text into memory. Already
// persisted chapters are read from disk without touching the transcription
// capability.
func (d *Document) EnsureChapters(ctx context.Context) error {
	if d.chaptersLoaded {
		return nil
	}
	if err := d.EnsureMetadata(ctx); err != nil {
		return err
	}

	if d.led.IntroductionFile == "" {
		log.Printf("Transcribing introduction of %s", d.stem)
		intro, err := d.deps.Transcriber.Introduction(ctx)
		if err != nil {
			return fmt.Errorf("failed to transcribe introduction: %w", err)
		}
		if err := os.WriteFile(filepath.Join(d.deps.Config.OutputDir, "introduction.md"), []byte(intro), 0o644); err != nil {
			return fmt.Errorf("failed to persist introduction: %w", err)
		}
		d.led.IntroductionFile = "introduction.md"
		if err := d.led.Touch(); err != nil {
			return err
		}
	}

	refs := d.led.Chapters
	for n := len(refs) + 1; n <= d.led.NumChapters; n++ {
		log.Printf("Transcribing chapter %d of %d", n, d.led.NumChapters)
		chapter, err := d.deps.Transcriber.Chapter(ctx, n)
		if err != nil {
			return fmt.Errorf("failed to transcribe chapter %d: %w", n, err)
		}

		chapterDir := filepath.Join(d.deps.Config.OutputDir, fmt.Sprintf("chapter_%02d", n))
		if err := os.MkdirAll(chapterDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", chapterDir, err)
		}
		markdownFile := filepath.Join(fmt.Sprintf("chapter_%02d", n), "chapter.md")
		if err := os.WriteFile(filepath.Join(d.deps.Config.OutputDir, markdownFile), []byte(chapter.MarkdownContents), 0o644); err != nil {
			return fmt.Errorf("failed to persist chapter %d: %w", n, err)
		}

		refs = append(refs, ledger.ChapterRef{
			Title:        chapter.Title,
			Number:       n,
			MarkdownFile: markdownFile,
		})
		if err := d.led.SetChapters(refs); err != nil {
			return err
		}
	}

	chapters := make([]types.RawChapter, 0, len(d.led.Chapters))
	for _, ref := range d.led.Chapters {
		contents, err := os.ReadFile(filepath.Join(d.deps.Config.OutputDir, ref.MarkdownFile))
		if err != nil {
			return fmt.Errorf("failed to load persisted chapter %d: %w", ref.Number, err)
		}
		chapters = append(chapters, types.RawChapter{
			Title:            ref.Title,
			Number:           ref.Number,
			MarkdownContents: string(contents),
		})
	}
	d.chapters = chapters
	d.chaptersLoaded = true
	return nil
}

// Chapters returns the loaded chapters. EnsureChapters must have succeeded.
func (d *Document) Chapters() []types.RawChapter {
	return d.chapters
}

// ExtractSections makes sure every chapter's sections are extracted and
// persisted, returning the sections per chapter number.
func (d *Document) ExtractSections(ctx context.Context) (map[int][]types.Section, error) {
	if err := d.EnsureChapters(ctx); err != nil {
		return nil, err
	}

	result := make(map[int][]types.Section, len(d.chapters))
	for _, chapter := range d.chapters {
		secs, err := d.chapterSections(ctx, chapter)
		if err != nil {
			return nil, err
		}
		result[chapter.Number] = secs
	}
	return result, nil
}

// chapterSections extracts a chapter's sections and persists them on first
// extraction, marking the chapter's sections_extracted flag.
func (d *Document) chapterSections(ctx context.Context, chapter types.RawChapter) ([]types.Section, error) {
	secs, err := d.extractor.Extract(ctx, chapter)
	if err != nil {
		return nil, err
	}

	ref := d.led.ChapterRef(chapter.Number)
	if ref != nil && !ref.SectionsExtracted {
		chapterDir := filepath.Join(d.deps.Config.OutputDir, fmt.Sprintf("chapter_%02d", chapter.Number))
		if err := os.MkdirAll(chapterDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", chapterDir, err)
		}
		for i, sec := range secs {
			name := fmt.Sprintf("section_%02d.md", i+1)
			if err := os.WriteFile(filepath.Join(chapterDir, name), []byte(sec.MarkdownContents), 0o644); err != nil {
				return nil, fmt.Errorf("failed to persist section %s: %w", sec.ID, err)
			}
		}
		ref.SectionsExtracted = true
		if err := d.led.Touch(); err != nil {
			return nil, err
		}
	}
	return secs, nil
}

// CreatePolicies builds a formal policy for every unprocessed section of
// every chapter. Each section is marked processed right after its build
// workflow completes, and a chapter is marked processed once all its sections
// are done, even when it yields zero policies.
func (d *Document) CreatePolicies(ctx context.Context) error {
	if err := d.EnsureChapters(ctx); err != nil {
		return err
	}

	for _, chapter := range d.chapters {
		if d.led.IsChapterProcessed(chapter.Number) {
			log.Printf("Chapter %d already processed, skipping", chapter.Number)
			continue
		}

		secs, err := d.chapterSections(ctx, chapter)
		if err != nil {
			return err
		}

		for _, sec := range secs {
			if d.led.IsSectionProcessed(sec.ID) {
				continue
			}
			if err := d.builder.ProcessSection(ctx, sec); err != nil {
				return err
			}
			if err := d.led.MarkSectionProcessed(sec.ID); err != nil {
				return err
			}
		}

		if err := d.led.MarkChapterProcessed(chapter.Number); err != nil {
			return err
		}
	}

	d.builder.Refresh()
	return nil
}

// PoliciesForChapter returns the built policies for one chapter, fetched from
// the reasoning service.
func (d *Document) PoliciesForChapter(ctx context.Context, chapterNumber int) ([]types.Policy, error) {
	return d.builder.PoliciesForChapter(ctx, chapterNumber)
}

// CheckCompliance evaluates a proposal document set against every built
// policy, grouped by chapter. Policies with zero declared variables are
// skipped entirely. Results short-circuit through the compliance cache, keyed
// by proposal digest, policy id, and definition hash, so a rebuilt policy
// invalidates cached verdicts even for identical proposals.
func (d *Document) CheckCompliance(ctx context.Context, proposalPaths []string) ([]ChapterCompliance, error) {
	if len(proposalPaths) > config.MaxProposalDocuments {
		return nil, fmt.Errorf("cannot parse more than %d documents in a single proposal", config.MaxProposalDocuments)
	}
	for _, p := range proposalPaths {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			return nil, fmt.Errorf("cannot read proposal file: %s", p)
		}
	}
	if err := d.EnsureChapters(ctx); err != nil {
		return nil, err
	}

	proposalDigest, err := resolve.ProposalDigest(proposalPaths)
	if err != nil {
		return nil, err
	}

	var results []ChapterCompliance
	for _, chapter := range d.chapters {
		log.Printf("Processing policy chapter %d - %s", chapter.Number, chapter.Title)
		policies, err := d.builder.PoliciesForChapter(ctx, chapter.Number)
		if err != nil {
			return nil, err
		}

		cc := ChapterCompliance{Number: chapter.Number, Title: chapter.Title}
		for _, pol := range policies {
			if len(pol.Variables) == 0 {
				log.Printf("\tSkipping empty policy %s", pol.Name)
				continue
			}
			log.Printf("\tProcessing policy %s", pol.Name)

			rp, err := d.evaluatePolicy(ctx, pol, proposalDigest, proposalPaths)
			if err != nil {
				return nil, err
			}
			cc.Policies = append(cc.Policies, rp)
		}
		results = append(results, cc)
	}
	return results, nil
}

// evaluatePolicy resolves and evaluates one policy for the proposal set,
// short-circuiting through the compliance cache.
func (d *Document) evaluatePolicy(ctx context.Context, pol types.Policy, proposalDigest string, proposalPaths []string) (*types.ResolvedPolicy, error) {
	key := cache.Key(proposalDigest, pol.ID, pol.DefinitionHash)

	var cached types.ResolvedPolicy
	hit, err := d.deps.Store.Load(key, &cached)
	if err != nil {
		log.Printf("Warning: failed to load compliance cache: %v, regenerating", err)
	}
	if hit {
		if raw, err := os.ReadFile(d.deps.Store.Path(key)); err == nil {
			if err := schemas.ValidateResolvedPolicy(raw); err != nil {
				log.Printf("Warning: cached entry for policy %s does not match the expected shape: %v", pol.Name, err)
			}
		}
		return &cached, nil
	}

	rp, err := d.resolver.Resolve(ctx, pol, proposalPaths)
	if err != nil {
		return nil, err
	}
	if _, err := d.evaluator.Evaluate(ctx, rp); err != nil {
		return nil, err
	}

	if err := d.deps.Store.Save(key, rp); err != nil {
		log.Printf("Warning: failed to save compliance cache: %v", err)
	}
	return rp, nil
}
