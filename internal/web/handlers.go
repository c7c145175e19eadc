package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/ops"
)

// Handlers contains HTTP route handlers for the viewer.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleSessions handles GET /sessions — list sessions by recency.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSessions(h.db, ops.ListSessionsInput{
		Limit: parseIntParam(r, "limit", ops.DefaultSessionLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "sessions", SessionsPageData{
		PageData: PageData{
			Title:   "Sessions",
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Sessions: result.Sessions,
	})
}

// HandleSessionDetail handles GET /sessions/{id} — one session's snapshots.
func (h *Handlers) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	stats, err := ops.Stats(h.db, ops.StatsInput{SessionID: sessionID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	list, err := ops.List(h.db, ops.ListInput{
		SessionID: &sessionID,
		Limit:     ops.MaxListLimit,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	now := time.Now().UTC().Unix()
	views := make([]SnapshotView, len(list.Items))
	for i, s := range list.Items {
		views[i] = SnapshotView{
			Snapshot:     s,
			RenderedHTML: renderMarkdown(s.Context),
			Age:          ageLabel(now, s.CreatedAt),
		}
	}

	h.renderer.renderPage(w, "session", SessionPageData{
		PageData: PageData{
			Title:   sessionID,
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		SessionID: sessionID,
		Stats:     stats,
		Snapshots: views,
	})
}

// HandleHealth handles GET /health — store integrity and totals.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	result, err := ops.HealthCheck(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "health", HealthPageData{
		PageData: PageData{
			Title:   "Health",
			Version: h.renderer.version,
			Nav:     "health",
		},
		Health: result,
	})
}

// parseIntParam reads an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ageLabel renders the age of a timestamp as a short label.
func ageLabel(now, unix int64) string {
	d := time.Duration(now-unix) * time.Second
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago"
	}
}
