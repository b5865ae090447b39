package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/imagilearn/corpus/internal/chunk"
)

// Block is one element of a page's structured body, in display order.
type Block struct {
	Kind     string // "text", "code", or "image"
	HTML     string // rich text, for text blocks
	Code     string
	Language string
	URL      string
	Caption  string
}

// Page is a CMS course page with its breadcrumb context.
type Page struct {
	ID              string
	CourseTitle     string
	ChapterTitle    string
	SubchapterTitle string
	Title           string
	Domain          string
	Slug            string
	Locale          string
	Concepts        []string
	Published       bool
	Visible         bool
	UpdatedAt       time.Time
	Blocks          []Block
}

// Imagimodel is a published mnemonic model entity.
type Imagimodel struct {
	ID              string
	Name            string
	Domain          string
	Concepts        []string
	MnemonicTags    []string
	TechniqueTags   []string
	DescriptionHTML string
	ImageURL        string
	Visible         bool
	UpdatedAt       time.Time
}

// Reflection is a user review/reflection with provenance metadata.
type Reflection struct {
	ID          string
	Domain      string
	AuthorLabel string
	UserHash    string
	PIILevel    string
	Sentiment   string
	Rating      int
	Text        string
	Visible     bool
	UpdatedAt   time.Time
}

// Source is the CMS iteration boundary: paginated listings of entities
// updated since a watermark. A zero since means all entities. Implementations
// return fewer than limit entries on the final page.
type Source interface {
	ListPages(ctx context.Context, since time.Time, offset, limit int) ([]Page, error)
	ListImagimodels(ctx context.Context, since time.Time, offset, limit int) ([]Imagimodel, error)
	ListReflections(ctx context.Context, since time.Time, offset, limit int) ([]Reflection, error)
}

// htmlToText strips markup from a rich-text block. Malformed HTML falls back
// to the raw input rather than dropping content.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}

// PageUnits extracts the ordered content units of a page. Blocks with no
// extractable text yield no unit.
func PageUnits(p Page) []Unit {
	base := chunk.Chunk{
		Collection: chunk.CollectionCourseContent,
		SourceType: chunk.SourceTypePageUnit,
		SourceID:   p.ID,
		Title1:     p.CourseTitle,
		Title2:     p.ChapterTitle,
		Title3:     p.SubchapterTitle,
		Title4:     p.Title,
		Domain:     p.Domain,
		Slug:       p.Slug,
		Locale:     p.Locale,
		Concepts:   p.Concepts,
		Visible:    p.Visible,
	}

	var units []Unit
	for orderIdx, b := range p.Blocks {
		row := base
		row.OrderIdx = orderIdx
		row.UnitIdx = len(units)

		var u Unit
		switch b.Kind {
		case "text":
			row.UnitKind = "text"
			row.UnitType = b.Kind
			u = Unit{Anchor: fmt.Sprintf("text_%d", orderIdx), Text: htmlToText(b.HTML), Row: row}
		case "code":
			row.UnitKind = "code"
			row.UnitType = b.Kind
			if b.Language != "" {
				row.CodeLanguages = []string{b.Language}
			}
			u = Unit{Anchor: fmt.Sprintf("code_%d", orderIdx), Text: b.Code, Row: row}
		case "image":
			row.UnitKind = "image"
			row.UnitType = b.Kind
			row.HasImage = true
			if b.URL != "" {
				row.ImageURLs = []string{b.URL}
			}
			u = Unit{Anchor: fmt.Sprintf("image_%d", orderIdx), Text: b.Caption, Row: row}
		default:
			continue
		}

		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		units = append(units, u)
	}
	return units
}

// ImagimodelUnit builds the single unit of a mnemonic model.
func ImagimodelUnit(m Imagimodel) Unit {
	text := htmlToText(m.DescriptionHTML)
	if m.Name != "" {
		text = m.Name + "\n\n" + text
	}

	row := chunk.Chunk{
		Collection:    chunk.CollectionMnemonics,
		SourceType:    chunk.SourceTypeImagimodel,
		SourceID:      m.ID,
		Title1:        m.Name,
		Domain:        m.Domain,
		Concepts:      m.Concepts,
		MnemonicTags:  m.MnemonicTags,
		TechniqueTags: m.TechniqueTags,
		Visible:       m.Visible,
		UnitKind:      "model",
	}
	if m.ImageURL != "" {
		row.HasImage = true
		row.ImageURLs = []string{m.ImageURL}
	}
	return Unit{Anchor: "model", Text: text, Row: row}
}

// ReflectionUnit builds the single unit of a user reflection.
func ReflectionUnit(r Reflection) Unit {
	row := chunk.Chunk{
		Collection:  chunk.CollectionReviews,
		SourceType:  chunk.SourceTypeReflection,
		SourceID:    r.ID,
		Domain:      r.Domain,
		AuthorLabel: r.AuthorLabel,
		UserHash:    r.UserHash,
		PIILevel:    r.PIILevel,
		Sentiment:   r.Sentiment,
		Rating:      r.Rating,
		Visible:     r.Visible,
		UnitKind:    "reflection",
	}
	return Unit{Anchor: "reflection", Text: strings.TrimSpace(r.Text), Row: row}
}

// Reindex entity type selectors.
const (
	TypePages       = "pages"
	TypeImagimodels = "imagimodels"
	TypeReflections = "reflections"
	TypeAll         = "all"
)

// DefaultReindexPageSize bounds one listing batch so long reindex jobs run as
// resumable pages instead of one unbounded pass.
const DefaultReindexPageSize = 50

// ReindexRequest selects which entity types to reindex and how.
type ReindexRequest struct {
	Types      []string
	Since      time.Time
	PageSize   int
	DryRun     bool
	PrunePages bool
}

// TypeCounts aggregates per-entity-type reindex outcomes.
type TypeCounts struct {
	Processed int `json:"processed"`
	Chunks    int `json:"chunks"`
	Pruned    int `json:"pruned"`
}

// ReindexResult maps entity type to its counts.
type ReindexResult map[string]*TypeCounts

// Reindexer drives batch re-ingestion of CMS entities.
type Reindexer struct {
	source   Source
	pipeline *Pipeline
	store    Upserter
	logger   *slog.Logger
}

// NewReindexer creates a Reindexer.
func NewReindexer(source Source, pipeline *Pipeline, store Upserter, logger *slog.Logger) (*Reindexer, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{source: source, pipeline: pipeline, store: store, logger: logger}, nil
}

// validTypes reports whether every requested type is known.
func validTypes(types []string) error {
	for _, t := range types {
		switch t {
		case TypePages, TypeImagimodels, TypeReflections, TypeAll:
		default:
			return fmt.Errorf("unknown reindex type %q", t)
		}
	}
	return nil
}

func selected(types []string, want string) bool {
	for _, t := range types {
		if t == want || t == TypeAll {
			return true
		}
	}
	return false
}

// Run reindexes the selected entity types. Failures abort the run and
// propagate; the caller can resume with an updated since watermark because
// already-ingested entities upsert idempotently.
func (r *Reindexer) Run(ctx context.Context, req ReindexRequest) (ReindexResult, error) {
	if len(req.Types) == 0 {
		return nil, fmt.Errorf("at least one reindex type is required")
	}
	if err := validTypes(req.Types); err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultReindexPageSize
	}

	result := ReindexResult{}
	if selected(req.Types, TypePages) {
		counts, err := r.reindexPages(ctx, req, pageSize)
		if err != nil {
			return nil, err
		}
		result[TypePages] = counts
	}
	if selected(req.Types, TypeImagimodels) {
		counts, err := r.reindexImagimodels(ctx, req, pageSize)
		if err != nil {
			return nil, err
		}
		result[TypeImagimodels] = counts
	}
	if selected(req.Types, TypeReflections) {
		counts, err := r.reindexReflections(ctx, req, pageSize)
		if err != nil {
			return nil, err
		}
		result[TypeReflections] = counts
	}
	return result, nil
}

func (r *Reindexer) reindexPages(ctx context.Context, req ReindexRequest, pageSize int) (*TypeCounts, error) {
	counts := &TypeCounts{}
	for offset := 0; ; offset += pageSize {
		pages, err := r.source.ListPages(ctx, req.Since, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing pages at offset %d: %w", offset, err)
		}

		for _, p := range pages {
			if !p.Published || !p.Visible {
				if req.PrunePages && !req.DryRun {
					n, err := r.store.DeleteSource(ctx, chunk.CollectionCourseContent, chunk.SourceTypePageUnit, p.ID)
					if err != nil {
						return nil, fmt.Errorf("pruning page %s: %w", p.ID, err)
					}
					counts.Pruned += int(n)
				}
				continue
			}

			res, err := r.pipeline.Run(ctx, PageUnits(p), req.DryRun)
			if err != nil {
				return nil, fmt.Errorf("ingesting page %s: %w", p.ID, err)
			}
			counts.Processed++
			counts.Chunks += res.Chunks
		}

		if len(pages) < pageSize {
			break
		}
	}
	r.logger.Info("reindexed pages", "processed", counts.Processed, "chunks", counts.Chunks,
		"pruned", counts.Pruned, "dry_run", req.DryRun)
	return counts, nil
}

func (r *Reindexer) reindexImagimodels(ctx context.Context, req ReindexRequest, pageSize int) (*TypeCounts, error) {
	counts := &TypeCounts{}
	for offset := 0; ; offset += pageSize {
		models, err := r.source.ListImagimodels(ctx, req.Since, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing imagimodels at offset %d: %w", offset, err)
		}

		for _, m := range models {
			if !m.Visible {
				if req.PrunePages && !req.DryRun {
					n, err := r.store.DeleteSource(ctx, chunk.CollectionMnemonics, chunk.SourceTypeImagimodel, m.ID)
					if err != nil {
						return nil, fmt.Errorf("pruning imagimodel %s: %w", m.ID, err)
					}
					counts.Pruned += int(n)
				}
				continue
			}

			res, err := r.pipeline.Run(ctx, []Unit{ImagimodelUnit(m)}, req.DryRun)
			if err != nil {
				return nil, fmt.Errorf("ingesting imagimodel %s: %w", m.ID, err)
			}
			counts.Processed++
			counts.Chunks += res.Chunks
		}

		if len(models) < pageSize {
			break
		}
	}
	r.logger.Info("reindexed imagimodels", "processed", counts.Processed, "chunks", counts.Chunks,
		"pruned", counts.Pruned, "dry_run", req.DryRun)
	return counts, nil
}

func (r *Reindexer) reindexReflections(ctx context.Context, req ReindexRequest, pageSize int) (*TypeCounts, error) {
	counts := &TypeCounts{}
	for offset := 0; ; offset += pageSize {
		reflections, err := r.source.ListReflections(ctx, req.Since, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing reflections at offset %d: %w", offset, err)
		}

		for _, refl := range reflections {
			if !refl.Visible {
				if req.PrunePages && !req.DryRun {
					n, err := r.store.DeleteSource(ctx, chunk.CollectionReviews, chunk.SourceTypeReflection, refl.ID)
					if err != nil {
						return nil, fmt.Errorf("pruning reflection %s: %w", refl.ID, err)
					}
					counts.Pruned += int(n)
				}
				continue
			}

			res, err := r.pipeline.Run(ctx, []Unit{ReflectionUnit(refl)}, req.DryRun)
			if err != nil {
				return nil, fmt.Errorf("ingesting reflection %s: %w", refl.ID, err)
			}
			counts.Processed++
			counts.Chunks += res.Chunks
		}

		if len(reflections) < pageSize {
			break
		}
	}
	r.logger.Info("reindexed reflections", "processed", counts.Processed, "chunks", counts.Chunks,
		"pruned", counts.Pruned, "dry_run", req.DryRun)
	return counts, nil
}
