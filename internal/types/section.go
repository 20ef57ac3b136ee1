package types

// RawChapter is one chapter of the source specification, transcribed to
// markdown.
type RawChapter struct {
	Title            string `json:"title"`
	Number           int    `json:"number"`
	MarkdownContents string `json:"markdown_contents"`
}

// Section is a self-contained slice of a chapter that carries verifiable
// policy content. Sections are immutable once extracted and are persisted as
// one markdown file each under the chapter's directory.
type Section struct {
	ID               string `json:"id" validate:"required"`
	Title            string `json:"title" validate:"required"`
	ChapterNumber    int    `json:"chapter_number" validate:"gte=1"`
	MarkdownContents string `json:"markdown_contents" validate:"required"`
	Rationale        string `json:"rationale,omitempty"`
}

// SectionList is the structured result of a section-extraction call.
type SectionList struct {
	Sections []Section `json:"sections"`
}
