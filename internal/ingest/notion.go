package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/imagilearn/corpus/internal/chunk"
)

// NoteProperties is the tag/category metadata pushed alongside a note.
type NoteProperties struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Domain   string   `json:"domain"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
	Author   string   `json:"author"`
}

// NotePayload is one externally-pushed note. PageID is the stable source
// identity; re-pushing the same page converges on the same chunk uids.
type NotePayload struct {
	PageID     string         `json:"page_id"`
	Properties NoteProperties `json:"properties"`
	Content    string         `json:"content"`
	URL        string         `json:"url,omitempty"`
}

// Validate reports the payload fields required for ingestion.
func (n NotePayload) Validate() error {
	if strings.TrimSpace(n.PageID) == "" {
		return fmt.Errorf("page_id is required")
	}
	if strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// NoteUnit builds the single logical unit of a note: title, blank line, body.
func NoteUnit(n NotePayload) Unit {
	text := strings.TrimSpace(n.Content)
	if title := strings.TrimSpace(n.Properties.Title); title != "" {
		text = title + "\n\n" + text
	}

	metadata := map[string]any{}
	if n.Properties.Category != "" {
		metadata["category"] = n.Properties.Category
	}
	if n.Properties.Date != "" {
		metadata["date"] = n.Properties.Date
	}
	if n.URL != "" {
		metadata["url"] = n.URL
	}

	row := chunk.Chunk{
		Collection:  chunk.CollectionNotion,
		SourceType:  chunk.SourceTypeNotionNote,
		SourceID:    n.PageID,
		Title1:      n.Properties.Title,
		Domain:      n.Properties.Domain,
		Concepts:    n.Properties.Tags,
		AuthorLabel: n.Properties.Author,
		Visible:     true,
		UnitKind:    "note",
	}
	if len(metadata) > 0 {
		row.Metadata = metadata
	}
	return Unit{Anchor: "note", Text: text, Row: row}
}

// IngestNote runs a pushed note through the pipeline.
func (p *Pipeline) IngestNote(ctx context.Context, n NotePayload) (*Result, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return p.Run(ctx, []Unit{NoteUnit(n)}, false)
}
