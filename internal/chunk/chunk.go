// Package chunk defines the atomic retrievable unit of indexed content and
// the pure functions that give it identity: deterministic UIDs, content
// hashing, and boundary-aware text splitting.
//
// Everything in this package is side-effect free. Embedding and persistence
// live in internal/embed and internal/store.
package chunk

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Collection names partition the retrieval scope. A chunk belongs to exactly
// one collection.
const (
	CollectionCourseContent = "course_content"
	CollectionNotion        = "notion"
	CollectionUserSessions  = "user_sessions"
	CollectionReviews       = "reviews"
	CollectionMnemonics     = "mnemonics"
)

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	switch name {
	case CollectionCourseContent, CollectionNotion, CollectionUserSessions,
		CollectionReviews, CollectionMnemonics:
		return true
	}
	return false
}

// Source types identify the kind of entity a chunk was extracted from.
const (
	SourceTypePageUnit   = "page_unit"
	SourceTypeNotionNote = "notion_note"
	SourceTypeMetaphor   = "metaphor_map"
	SourceTypeImagimodel = "imagimodel"
	SourceTypeReflection = "reflection"
)

// VectorDimension is the fixed width of all stored embeddings. It must match
// the vector(N) column in db/migrations and the embedder's output
// dimensionality; rows with mixed dimensions cannot be queried together.
const VectorDimension int32 = 768

// Chunk is one row of the chunks table: a unit of source text with its
// embedding, provenance coordinates, and display metadata.
type Chunk struct {
	UID string // deterministic, see MakeUID

	Collection string
	SourceType string
	SourceID   string

	// Positional coordinates locating this chunk within its source.
	UnitKind string
	UnitType string
	OrderIdx int
	UnitIdx  int
	ChunkIdx int

	// Breadcrumb titles, outermost first (course/chapter/subchapter/page).
	Title1  string
	Title2  string
	Title3  string
	Title4  string
	Domain  string
	Slug    string
	Locale  string
	Visible bool

	// Content classification.
	HasImage      bool
	ImageURLs     []string
	CodeLanguages []string
	Concepts      []string
	MnemonicTags  []string
	TechniqueTags []string

	// Provenance and privacy.
	AuthorLabel string
	UserHash    string
	PIILevel    string
	Sentiment   string
	Rating      int

	Content     string
	ContentHash string
	Embedding   pgvector.Vector
	Metadata    map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}
