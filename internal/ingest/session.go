package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imagilearn/corpus/internal/chunk"
)

// SessionArtifact is the structured outcome extracted from one finished
// learning session: a short legend, numbered rules, a free-text script, and
// numbered red flags. Artifacts are small by construction and always stored
// as exactly one chunk.
type SessionArtifact struct {
	SessionID int64    `json:"session_id"`
	Legend    string   `json:"legend"`
	Rules     []string `json:"rules"`
	Script    string   `json:"script"`
	RedFlags  []string `json:"red_flags"`
	Domain    string   `json:"domain,omitempty"`
	UserHash  string   `json:"user_hash,omitempty"`
}

// Validate reports the artifact fields required for ingestion.
func (a SessionArtifact) Validate() error {
	if a.SessionID <= 0 {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(a.Script) == "" && len(a.Rules) == 0 {
		return fmt.Errorf("artifact has no script or rules")
	}
	return nil
}

// Compose concatenates the artifact into its stored content: script first,
// then a RULES section, then a RED FLAGS section. Empty sections are omitted
// entirely, header included.
func (a SessionArtifact) Compose() string {
	var sections []string
	if s := strings.TrimSpace(a.Script); s != "" {
		sections = append(sections, s)
	}
	if lines := numbered(a.Rules); lines != "" {
		sections = append(sections, "RULES:\n"+lines)
	}
	if lines := numbered(a.RedFlags); lines != "" {
		sections = append(sections, "RED FLAGS:\n"+lines)
	}
	return strings.Join(sections, "\n\n")
}

// numbered renders non-blank items as "1. item" lines.
func numbered(items []string) string {
	var b strings.Builder
	n := 0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n", n, item)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// SessionUnit builds the single, unsplittable unit of a session artifact.
func SessionUnit(a SessionArtifact) Unit {
	row := chunk.Chunk{
		Collection: chunk.CollectionUserSessions,
		SourceType: chunk.SourceTypeMetaphor,
		SourceID:   strconv.FormatInt(a.SessionID, 10),
		Title1:     strings.TrimSpace(a.Legend),
		Domain:     a.Domain,
		UserHash:   a.UserHash,
		Visible:    true,
		UnitKind:   "artifact",
	}
	return Unit{Anchor: "artifact", Text: a.Compose(), Row: row, NoSplit: true}
}

// IngestSession runs one finished session's artifact through the pipeline.
func (p *Pipeline) IngestSession(ctx context.Context, a SessionArtifact) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return p.Run(ctx, []Unit{SessionUnit(a)}, false)
}
