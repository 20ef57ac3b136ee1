// Package ledger provides the durable processing record for one source
// specification document: which chapters have been transcribed, which sections
// have been extracted, and which sections and chapters have completed policy
// processing. Every mutation is persisted write-through so an interrupted run
// resumes exactly where it stopped.
package ledger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// ChapterRef points at a persisted chapter markdown file and records whether
// its sections have been extracted.
type ChapterRef struct {
	Title             string `json:"title"`
	Number            int    `json:"number"`
	MarkdownFile      string `json:"markdown_file"`
	SectionsExtracted bool   `json:"sections_extracted"`
}

// SaveFunc persists the full ledger to its backing store. The ledger calls it
// synchronously after every mutation.
type SaveFunc func(*Ledger) error

// Ledger is the per-document processing state. It is mutated in place by the
// orchestrator and section extractor and serialized as structured JSON after
// each mark operation.
type Ledger struct {
	DocumentUUID     string          `json:"document_uuid"`
	SourceURI        string          `json:"source_uri"`
	FileHash         string          `json:"file_hash"`
	Title            string          `json:"title"`
	Author           string          `json:"author"`
	Revision         string          `json:"revision"`
	PublicationDate  string          `json:"publication_date"`
	NumChapters      int             `json:"num_chapters"`
	IntroductionFile string          `json:"introduction_file,omitempty"`
	Chapters         []ChapterRef    `json:"chapters,omitempty"`
	SectionsDone     map[string]bool `json:"section_policies_generated"`
	ChaptersDone     map[int]bool    `json:"chapter_policies_generated"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	save SaveFunc
}

// New creates a fresh ledger for a source document. The save callback is
// mandatory: a ledger without one would mutate in memory only, which is a
// configuration error rather than a supported mode.
func New(sourceURI, fileHash string, save SaveFunc) (*Ledger, error) {
	if save == nil {
		return nil, fmt.Errorf("ledger: save callback is required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to generate document UUID: %w", err)
	}
	now := time.Now()
	return &Ledger{
		DocumentUUID: id.String(),
		SourceURI:    sourceURI,
		FileHash:     fileHash,
		SectionsDone: map[string]bool{},
		ChaptersDone: map[int]bool{},
		CreatedAt:    now,
		UpdatedAt:    now,
		save:         save,
	}, nil
}

// Load reads a ledger from path. It returns (nil, nil) when no ledger exists.
// When the source document's digest differs from the stored one the ledger is
// stale: the digest is updated and re-saved with a warning, but the existing
// processed flags are preserved to avoid reprocessing cost. Callers should
// treat hash-mismatched chapter and section text with caution.
func Load(path, fileHash string, save SaveFunc) (*Ledger, error) {
	if save == nil {
		return nil, fmt.Errorf("ledger: save callback is required")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to read %s: %w", path, err)
	}

	var led Ledger
	if err := json.Unmarshal(data, &led); err != nil {
		return nil, fmt.Errorf("ledger: failed to parse %s: %w", path, err)
	}
	if led.SectionsDone == nil {
		led.SectionsDone = map[string]bool{}
	}
	if led.ChaptersDone == nil {
		led.ChaptersDone = map[int]bool{}
	}
	led.save = save

	if led.FileHash != fileHash {
		log.Printf("Warning: source file hash mismatch for %s, updating ledger digest and keeping progress flags", path)
		led.FileHash = fileHash
		led.UpdatedAt = time.Now()
		if err := led.Persist(); err != nil {
			return nil, err
		}
	}

	return &led, nil
}

// SaveToFile returns a SaveFunc that serializes the ledger as indented JSON
// at path.
func SaveToFile(path string) SaveFunc {
	return func(l *Ledger) error {
		data, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return fmt.Errorf("ledger: failed to marshal: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("ledger: failed to write %s: %w", path, err)
		}
		return nil
	}
}

// Persist writes the current state through the save callback.
func (l *Ledger) Persist() error {
	return l.save(l)
}

// IsChapterProcessed reports whether all policy processing for a chapter has
// completed.
func (l *Ledger) IsChapterProcessed(number int) bool {
	return l.ChaptersDone[number]
}

// MarkChapterProcessed records a chapter as fully processed and persists the
// ledger. It is idempotent.
func (l *Ledger) MarkChapterProcessed(number int) error {
	l.ChaptersDone[number] = true
	l.UpdatedAt = time.Now()
	return l.Persist()
}

// IsSectionProcessed reports whether a section's policy has been created.
func (l *Ledger) IsSectionProcessed(id string) bool {
	return l.SectionsDone[id]
}

// MarkSectionProcessed records a section as fully processed and persists the
// ledger. It is idempotent.
func (l *Ledger) MarkSectionProcessed(id string) error {
	l.SectionsDone[id] = true
	l.UpdatedAt = time.Now()
	return l.Persist()
}

// ChapterRef returns the stored reference for a chapter number, or nil.
func (l *Ledger) ChapterRef(number int) *ChapterRef {
	for i := range l.Chapters {
		if l.Chapters[i].Number == number {
			return &l.Chapters[i]
		}
	}
	return nil
}

// SetChapters replaces the chapter references and persists the ledger.
func (l *Ledger) SetChapters(refs []ChapterRef) error {
	l.Chapters = refs
	l.UpdatedAt = time.Now()
	return l.Persist()
}

// Touch updates the modification timestamp and persists the ledger.
func (l *Ledger) Touch() error {
	l.UpdatedAt = time.Now()
	return l.Persist()
}
