package ops

import (
	"database/sql"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// ScoreStrategy selects how a relevance score is weighted.
//
// The two strategies are deliberately kept as named variants rather than
// unified into one formula: topic search boosts recent records, while
// the lightweight filtering path weighs term matches and importance only.
type ScoreStrategy string

const (
	// ScoreWithRecency applies the recency multiplier
	// max(0.5, 2 - ageHours/24) on top of term and importance weighting.
	ScoreWithRecency ScoreStrategy = "recency"

	// ScoreStatic weighs term matches and importance only.
	ScoreStatic ScoreStrategy = "static"
)

// Per-term field weights for relevance scoring.
const (
	weightSummary   = 3.0
	weightContext   = 2.0
	weightDecisions = 2.0
	weightNextSteps = 1.0
	weightFiles     = 1.0
)

// SearchInput contains parameters for the SearchAbout operation.
type SearchInput struct {
	Query           string        // required, non-empty after trimming
	SessionID       *string       // optional; nil searches all sessions
	ImportanceFloor *string       // optional minimum importance tier
	MaxResults      int           // default: 5, max: 50
	Strategy        ScoreStrategy // default: ScoreWithRecency
}

// SearchResult pairs a snapshot with its relevance score.
type SearchResult struct {
	Snapshot snapshot.Snapshot `json:"snapshot"`

	// Score is the final weighted relevance score.
	Score float64 `json:"score"`

	// RelevancePercent is Score relative to the top result, for display only.
	RelevancePercent int `json:"relevance_percent"`
}

// SearchOutput contains the ranked, truncated search results.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchAbout scores snapshots against a free-text query and returns the
// ranked top matches. Terms match independently (OR semantics): a record
// matching some terms still scores. Zero-score records are dropped; an
// empty result set is "no matches", not an error.
func SearchAbout(database *sql.DB, input SearchInput) (*SearchOutput, error) {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(input.Query)))
	if len(terms) == 0 {
		return nil, errors.NewInvalidRequest("query is required")
	}

	strategy := input.Strategy
	if strategy == "" {
		strategy = ScoreWithRecency
	}
	if strategy != ScoreWithRecency && strategy != ScoreStatic {
		return nil, errors.NewInvalidRequest("strategy must be one of: recency, static")
	}

	maxResults := clampLimit(input.MaxResults, DefaultSearchResults, MaxSearchResults)

	candidates, err := loadCandidates(database, input.SessionID)
	if err != nil {
		return nil, err
	}

	if input.ImportanceFloor != nil {
		floor := snapshot.NormalizeImportance(*input.ImportanceFloor).Weight()
		kept := candidates[:0]
		for _, s := range candidates {
			if s.Importance.Weight() >= floor {
				kept = append(kept, s)
			}
		}
		candidates = kept
	}

	now := time.Now().UTC().Unix()
	results := make([]SearchResult, 0, len(candidates))
	for _, s := range candidates {
		score := scoreSnapshot(&s, terms, strategy, now)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Snapshot: s, Score: score})
	}

	// Stable sort: ties keep original candidate order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	if len(results) > 0 {
		top := results[0].Score
		for i := range results {
			results[i].RelevancePercent = int(math.Round(100 * results[i].Score / top))
		}
	}

	return &SearchOutput{Results: results, Count: len(results)}, nil
}

// scoreSnapshot computes the weighted relevance of one snapshot: per-term
// field hits, scaled by importance, and (for ScoreWithRecency) by age.
func scoreSnapshot(s *snapshot.Snapshot, terms []string, strategy ScoreStrategy, now int64) float64 {
	summary := newFieldText(s.Summary)
	context := newFieldText(s.Context)
	decisions := newFieldText(strings.Join(s.Decisions, " "))
	files := newFieldText(strings.Join(s.FilesTouched, " "))
	nextSteps := fieldText{}
	if s.NextSteps != nil {
		nextSteps = newFieldText(*s.NextSteps)
	}

	raw := 0.0
	for _, term := range terms {
		if summary.matches(term) {
			raw += weightSummary
		}
		if context.matches(term) {
			raw += weightContext
		}
		if decisions.matches(term) {
			raw += weightDecisions
		}
		if nextSteps.matches(term) {
			raw += weightNextSteps
		}
		if files.matches(term) {
			raw += weightFiles
		}
	}
	if raw == 0 {
		return 0
	}

	score := raw * s.Importance.Multiplier()
	if strategy == ScoreWithRecency {
		score *= recencyMultiplier(now, s.CreatedAt)
	}
	return score
}

// minStemLen is the shortest field word allowed to match as a stem of a
// longer query term, keeping connectives like "the" or "for" from
// matching everything.
const minStemLen = 4

// fieldText is a lowercased field prepared for term matching.
type fieldText struct {
	text  string
	words []string
}

func newFieldText(s string) fieldText {
	lower := strings.ToLower(s)
	return fieldText{text: lower, words: strings.Fields(lower)}
}

// matches reports whether a query term hits this field. A hit is either
// the term appearing as a substring, or a field word appearing as a stem
// of the term, so "auth" in a summary matches the query "authentication".
func (f fieldText) matches(term string) bool {
	if f.text == "" {
		return false
	}
	if strings.Contains(f.text, term) {
		return true
	}
	for _, w := range f.words {
		if len(w) >= minStemLen && strings.Contains(term, w) {
			return true
		}
	}
	return false
}

// recencyMultiplier boosts records under a day old (up to 2x), decaying
// linearly with age to a floor of 0.5x.
func recencyMultiplier(now, createdAt int64) float64 {
	ageHours := float64(now-createdAt) / 3600
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Max(0.5, 2-ageHours/24)
}
