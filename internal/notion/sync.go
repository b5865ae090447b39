package notion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/imagilearn/corpus/internal/ingest"
)

// SyncResult summarizes one sync run.
type SyncResult struct {
	PagesSynced  int
	PagesSkipped int
	PagesFailed  int
	Chunks       int
	Duration     time.Duration
}

// Sync pulls every page the integration can see and ingests each one as a
// note. Individual page failures are counted and skipped; only the initial
// search can fail the run as a whole.
func Sync(ctx context.Context, client *Client, pipeline *ingest.Pipeline, maxPages int, logger *slog.Logger) (*SyncResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	result := &SyncResult{}

	pages, err := client.Search(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("searching notion pages: %w", err)
	}
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}

	for i, page := range pages {
		title := PageTitle(page)
		logger.Info("syncing page",
			"progress", fmt.Sprintf("%d/%d", i+1, len(pages)),
			"page_id", page.ID, "title", title)

		blocks, err := client.BlockChildren(ctx, page.ID)
		if err != nil {
			logger.Warn("failed to fetch page content, skipping",
				"page_id", page.ID, "error", err)
			result.PagesFailed++
			continue
		}

		content := ExtractText(blocks)
		if content == "" {
			result.PagesSkipped++
			continue
		}

		res, err := pipeline.IngestNote(ctx, toPayload(page, title, content))
		if err != nil {
			logger.Warn("failed to ingest page, skipping",
				"page_id", page.ID, "error", err)
			result.PagesFailed++
			continue
		}
		result.PagesSynced++
		result.Chunks += res.Chunks
	}

	result.Duration = time.Since(start)
	logger.Info("notion sync completed",
		"synced", result.PagesSynced,
		"skipped", result.PagesSkipped,
		"failed", result.PagesFailed,
		"chunks", result.Chunks,
		"duration", result.Duration.String())
	return result, nil
}

// toPayload maps a fetched page onto the note ingestion payload.
func toPayload(page Page, title, content string) ingest.NotePayload {
	return ingest.NotePayload{
		PageID: page.ID,
		Properties: ingest.NoteProperties{
			Title:    title,
			Category: selectValue(page, "Category"),
			Domain:   selectValue(page, "Domain"),
			Tags:     multiSelectValues(page, "Tags"),
			Date:     page.LastEditedTime.Format(time.RFC3339),
			Author:   selectValue(page, "Author"),
		},
		Content: content,
		URL:     page.URL,
	}
}

func selectValue(page Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

func multiSelectValues(page Page, name string) []string {
	prop, ok := page.Properties[name]
	if !ok || len(prop.MultiSelect) == 0 {
		return nil
	}
	values := make([]string, len(prop.MultiSelect))
	for i, opt := range prop.MultiSelect {
		values[i] = opt.Name
	}
	return values
}

// ExtractText renders blocks as markdown-ish plain text, one block per
// paragraph. Unsupported block types are skipped.
func ExtractText(blocks []Block) string {
	var b strings.Builder
	for _, block := range blocks {
		var text string
		switch block.Type {
		case "paragraph":
			if block.Paragraph != nil {
				text = richText(block.Paragraph.RichText)
			}
		case "heading_1":
			if block.Heading1 != nil {
				text = "# " + richText(block.Heading1.RichText)
			}
		case "heading_2":
			if block.Heading2 != nil {
				text = "## " + richText(block.Heading2.RichText)
			}
		case "heading_3":
			if block.Heading3 != nil {
				text = "### " + richText(block.Heading3.RichText)
			}
		case "bulleted_list_item":
			if block.BulletedListItem != nil {
				text = "- " + richText(block.BulletedListItem.RichText)
			}
		case "numbered_list_item":
			if block.NumberedListItem != nil {
				text = "- " + richText(block.NumberedListItem.RichText)
			}
		case "code":
			if block.Code != nil {
				text = fmt.Sprintf("```%s\n%s\n```", block.Code.Language, richText(block.Code.RichText))
			}
		case "quote":
			if block.Quote != nil {
				text = "> " + richText(block.Quote.RichText)
			}
		case "to_do":
			if block.ToDo != nil {
				box := "[ ]"
				if block.ToDo.Checked {
					box = "[x]"
				}
				text = box + " " + richText(block.ToDo.RichText)
			}
		default:
			continue
		}

		if text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func richText(spans []RichText) string {
	var parts []string
	for _, s := range spans {
		parts = append(parts, s.PlainText)
	}
	return strings.Join(parts, "")
}

// PageTitle extracts a page's title property; property names vary but the
// type is always "title".
func PageTitle(page Page) string {
	for _, prop := range page.Properties {
		if prop.Type == "title" && len(prop.Title) > 0 {
			return richText(prop.Title)
		}
	}
	return "Untitled"
}
