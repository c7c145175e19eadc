package ops

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// budgetMarginPct discounts the requested token budget before selection.
// The token estimate is approximate; the margin keeps the assembled blob
// under what the downstream context window actually asked for.
const budgetMarginPct = 85

// recordSeparator joins rendered snapshots in the assembled text.
const recordSeparator = "\n\n---\n\n"

// AssembleInput contains parameters for the AssembleContext operation.
type AssembleInput struct {
	SessionID *string // optional; nil assembles across all sessions
	MaxTokens int     // default: config RestoreMaxTokens (15000)
}

// InjectInput contains parameters for the AssembleForInjection operation.
type InjectInput struct {
	SessionID       *string // optional
	Topic           *string // optional substring pre-filter
	IncludeCritical *bool   // default true: keep critical/important regardless of topic
	MaxTokens       int     // default: config InjectMaxTokens (5000)
}

// AssembleOutput contains the assembled context blob and usage statistics.
type AssembleOutput struct {
	Text        string `json:"text"`
	RecordsUsed int    `json:"records_used"`
	TotalTokens int    `json:"total_tokens"`
	OldestTS    string `json:"oldest_ts"`
	NewestTS    string `json:"newest_ts"`
}

// AssembleContext selects, formats, and concatenates snapshots to fit a
// token budget, using the full "compact" rendering.
func AssembleContext(database *sql.DB, cfg *config.Config, input AssembleInput) (*AssembleOutput, error) {
	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = cfg.RestoreMaxTokens
	}

	candidates, err := loadCandidates(database, input.SessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Unix()
	return assemble(candidates, maxTokens, func(s *snapshot.Snapshot, latest bool) string {
		return renderCompact(s, latest, now)
	}), nil
}

// AssembleForInjection assembles a terser blob for injecting into a new
// session. Candidates are pre-filtered: a snapshot passes if it matches
// the topic substring, or (unless disabled) carries critical/important
// importance.
func AssembleForInjection(database *sql.DB, cfg *config.Config, input InjectInput) (*AssembleOutput, error) {
	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = cfg.InjectMaxTokens
	}

	includeCritical := true
	if input.IncludeCritical != nil {
		includeCritical = *input.IncludeCritical
	}

	topic := ""
	if input.Topic != nil {
		topic = strings.ToLower(strings.TrimSpace(*input.Topic))
	}

	candidates, err := loadCandidates(database, input.SessionID)
	if err != nil {
		return nil, err
	}

	filtered := make([]snapshot.Snapshot, 0, len(candidates))
	for _, s := range candidates {
		if matchesTopic(&s, topic) || (includeCritical && s.Importance.Weight() >= snapshot.ImportanceImportant.Weight()) {
			filtered = append(filtered, s)
		}
	}

	return assemble(filtered, maxTokens, func(s *snapshot.Snapshot, _ bool) string {
		return renderInjection(s)
	}), nil
}

// loadCandidates fetches snapshots in the canonical assembly order:
// importance weight descending, then recency descending.
func loadCandidates(database *sql.DB, sessionID *string) ([]snapshot.Snapshot, error) {
	if sessionID != nil && strings.TrimSpace(*sessionID) != "" {
		return db.CandidatesBySession(database, strings.TrimSpace(*sessionID))
	}
	return db.CandidatesAll(database)
}

// assemble walks the priority-ordered candidates, greedily accepting a
// prefix that fits floor(maxTokens*0.85). The first candidate is accepted
// even if it alone exceeds the budget, so the result is never empty when
// candidates exist. Accepted records are emitted oldest-to-newest.
func assemble(candidates []snapshot.Snapshot, maxTokens int, render func(*snapshot.Snapshot, bool) string) *AssembleOutput {
	if len(candidates) == 0 {
		return &AssembleOutput{}
	}

	effectiveBudget := maxTokens * budgetMarginPct / 100

	accepted := make([]snapshot.Snapshot, 0, len(candidates))
	totalTokens := 0
	for i := range candidates {
		s := candidates[i]
		if len(accepted) > 0 && totalTokens+s.TokenEstimate > effectiveBudget {
			break
		}
		accepted = append(accepted, s)
		totalTokens += s.TokenEstimate
	}

	// Chronological order for the emitted text; selection order already
	// honored importance.
	chronological := make([]snapshot.Snapshot, len(accepted))
	copy(chronological, accepted)
	sortChronological(chronological)

	newest := &chronological[len(chronological)-1]
	rendered := make([]string, len(chronological))
	for i := range chronological {
		s := &chronological[i]
		rendered[i] = render(s, s.ID == newest.ID)
	}

	return &AssembleOutput{
		Text:        strings.Join(rendered, recordSeparator),
		RecordsUsed: len(accepted),
		TotalTokens: totalTokens,
		OldestTS:    formatTS(chronological[0].CreatedAt),
		NewestTS:    formatTS(newest.CreatedAt),
	}
}

// sortChronological orders snapshots oldest-first by created_at, with id
// as the tiebreak (ids are monotonic across the store).
func sortChronological(snapshots []snapshot.Snapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt != snapshots[j].CreatedAt {
			return snapshots[i].CreatedAt < snapshots[j].CreatedAt
		}
		return snapshots[i].ID < snapshots[j].ID
	})
}

// matchesTopic reports whether the topic appears in the summary or
// rendered context (case-insensitive). An empty topic never matches.
func matchesTopic(s *snapshot.Snapshot, topic string) bool {
	if topic == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s.Summary), topic) ||
		strings.Contains(strings.ToLower(s.Context), topic)
}

// renderCompact produces the full rendering used by context restore: a
// header with a relative-time label (and a [LATEST] marker on the newest
// record), the summary, the full context, and next steps.
func renderCompact(s *snapshot.Snapshot, latest bool, now int64) string {
	var sb strings.Builder
	if latest {
		sb.WriteString("[LATEST] ")
	}
	sb.WriteString(s.Summary)
	sb.WriteString(" (")
	sb.WriteString(relativeTime(now, s.CreatedAt))
	sb.WriteString(")\n")
	sb.WriteString(s.Context)
	if s.NextSteps != nil {
		sb.WriteString("\nNext steps: ")
		sb.WriteString(*s.NextSteps)
	}
	return sb.String()
}

// renderInjection produces the terse rendering used by injection: the
// summary, the context, and an arrow line for next steps. No time label.
func renderInjection(s *snapshot.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(s.Summary)
	sb.WriteString("\n")
	sb.WriteString(s.Context)
	if s.NextSteps != nil {
		sb.WriteString("\n→ ")
		sb.WriteString(*s.NextSteps)
	}
	return sb.String()
}
