package ops

import (
	"testing"
	"time"

	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

func TestSearchEmptyQuery(t *testing.T) {
	database, _ := testStore(t)

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := SearchAbout(database, SearchInput{Query: query})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("query %q: expected INVALID_REQUEST, got %v", query, err)
		}
	}
}

func TestSearchInvalidStrategy(t *testing.T) {
	database, _ := testStore(t)

	_, err := SearchAbout(database, SearchInput{Query: "auth", Strategy: "fuzzy"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for unknown strategy, got %v", err)
	}
}

func TestSearchNoMatchesIsEmpty(t *testing.T) {
	database, _ := testStore(t)

	seed(t, database, "session-a", "frontend styling", snapshot.ImportanceNormal, 10, 1000)

	result, err := SearchAbout(database, SearchInput{Query: "kubernetes"})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 0 || len(result.Results) != 0 {
		t.Errorf("expected no matches, got %+v", result)
	}
}

func TestSearchStemMatching(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	hit := &snapshot.Snapshot{
		SessionID:     "session-a",
		Summary:       "Auth implementation",
		Context:       "middleware work",
		Importance:    snapshot.ImportanceNormal,
		TokenEstimate: 10,
		CreatedAt:     now,
	}
	seedRaw(t, database, hit)
	miss := &snapshot.Snapshot{
		SessionID:     "session-a",
		Summary:       "PostgreSQL",
		Context:       "migration scripts",
		Importance:    snapshot.ImportanceNormal,
		TokenEstimate: 10,
		CreatedAt:     now,
	}
	seedRaw(t, database, miss)

	// "auth" in the summary matches the longer query term.
	result, err := SearchAbout(database, SearchInput{Query: "authentication"})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("count = %d, want 1", result.Count)
	}
	if result.Results[0].Snapshot.ID != hit.ID {
		t.Errorf("wrong record matched: %q", result.Results[0].Snapshot.Summary)
	}
	if result.Results[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", result.Results[0].Score)
	}
}

func TestSearchFieldWeights(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	// Same term in different fields; summary outweighs context.
	inSummary := seed(t, database, "session-a", "auth middleware rewrite", snapshot.ImportanceNormal, 10, now)
	inContext := &snapshot.Snapshot{
		SessionID:     "session-a",
		Summary:       "misc work",
		Context:       "touched the auth flow",
		Importance:    snapshot.ImportanceNormal,
		TokenEstimate: 10,
		CreatedAt:     now,
	}
	seedRaw(t, database, inContext)

	result, err := SearchAbout(database, SearchInput{Query: "auth", Strategy: ScoreStatic})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count = %d, want 2", result.Count)
	}
	if result.Results[0].Snapshot.ID != inSummary.ID {
		t.Errorf("summary match should rank first, got %q", result.Results[0].Snapshot.Summary)
	}
	if result.Results[0].Score <= result.Results[1].Score {
		t.Errorf("scores not descending: %v", result.Results)
	}
	if result.Results[0].RelevancePercent != 100 {
		t.Errorf("top result relevance = %d%%, want 100%%", result.Results[0].RelevancePercent)
	}
}

func TestSearchImportanceMultiplier(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	seed(t, database, "session-a", "auth normal", snapshot.ImportanceNormal, 10, now)
	critical := seed(t, database, "session-a", "auth critical", snapshot.ImportanceCritical, 10, now)

	result, err := SearchAbout(database, SearchInput{Query: "auth", Strategy: ScoreStatic})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count = %d, want 2", result.Count)
	}
	if result.Results[0].Snapshot.ID != critical.ID {
		t.Errorf("critical match should rank first, got %q", result.Results[0].Snapshot.Summary)
	}
	if got, want := result.Results[0].Score, result.Results[1].Score*2; got != want {
		t.Errorf("critical score = %v, want 2x normal (%v)", got, want)
	}
}

func TestSearchRecencyBoost(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	old := seed(t, database, "session-a", "auth old", snapshot.ImportanceNormal, 10, now-10*24*3600)
	fresh := seed(t, database, "session-a", "auth fresh", snapshot.ImportanceNormal, 10, now)

	withRecency, err := SearchAbout(database, SearchInput{Query: "auth"})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if withRecency.Results[0].Snapshot.ID != fresh.ID {
		t.Errorf("recency strategy should rank the fresh record first")
	}

	static, err := SearchAbout(database, SearchInput{Query: "auth", Strategy: ScoreStatic})
	if err != nil {
		t.Fatalf("static SearchAbout failed: %v", err)
	}
	if static.Results[0].Score != static.Results[1].Score {
		t.Errorf("static strategy should ignore age: %v vs %v",
			static.Results[0].Score, static.Results[1].Score)
	}
	_ = old
}

func TestSearchImportanceFloor(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	seed(t, database, "session-a", "auth reference", snapshot.ImportanceReference, 10, now)
	seed(t, database, "session-a", "auth normal", snapshot.ImportanceNormal, 10, now)
	seed(t, database, "session-a", "auth important", snapshot.ImportanceImportant, 10, now)

	result, err := SearchAbout(database, SearchInput{
		Query:           "auth",
		ImportanceFloor: strPtr("important"),
	})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("count = %d, want 1", result.Count)
	}
	if result.Results[0].Snapshot.Summary != "auth important" {
		t.Errorf("floor filter kept wrong record: %q", result.Results[0].Snapshot.Summary)
	}
}

func TestSearchSessionScope(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	seed(t, database, "session-a", "auth in a", snapshot.ImportanceNormal, 10, now)
	seed(t, database, "session-b", "auth in b", snapshot.ImportanceNormal, 10, now)

	result, err := SearchAbout(database, SearchInput{Query: "auth", SessionID: strPtr("session-a")})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 1 || result.Results[0].Snapshot.SessionID != "session-a" {
		t.Errorf("session scope leaked: %+v", result)
	}
}

func TestSearchMaxResults(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	for i := 0; i < 8; i++ {
		seed(t, database, "session-a", "auth work", snapshot.ImportanceNormal, 10, now)
	}

	result, err := SearchAbout(database, SearchInput{Query: "auth", MaxResults: 3})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 3 {
		t.Errorf("count = %d, want 3", result.Count)
	}

	// Default caps at 5.
	result, err = SearchAbout(database, SearchInput{Query: "auth"})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != DefaultSearchResults {
		t.Errorf("count = %d, want default %d", result.Count, DefaultSearchResults)
	}
}

func TestSearchMultiTermOR(t *testing.T) {
	database, _ := testStore(t)

	now := time.Now().UTC().Unix()
	both := seed(t, database, "session-a", "auth token refresh", snapshot.ImportanceNormal, 10, now)
	one := seed(t, database, "session-a", "token parsing", snapshot.ImportanceNormal, 10, now)

	result, err := SearchAbout(database, SearchInput{Query: "auth token", Strategy: ScoreStatic})
	if err != nil {
		t.Fatalf("SearchAbout failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count = %d, want 2 (partial matches still score)", result.Count)
	}
	if result.Results[0].Snapshot.ID != both.ID {
		t.Errorf("record matching both terms should rank first")
	}
	_ = one
}

func TestRecencyMultiplier(t *testing.T) {
	now := int64(1000000)
	tests := []struct {
		age  int64
		want float64
	}{
		{0, 2.0},
		{12 * 3600, 1.5},
		{24 * 3600, 1.0},
		{10 * 24 * 3600, 0.5}, // floored
	}

	for _, tt := range tests {
		if got := recencyMultiplier(now, now-tt.age); got != tt.want {
			t.Errorf("recencyMultiplier(age=%dh) = %v, want %v", tt.age/3600, got, tt.want)
		}
	}
}
