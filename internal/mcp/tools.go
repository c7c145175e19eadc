package mcp

import "github.com/mark3labs/mcp-go/mcp"

var saveToolDef = mcp.NewTool("memory_save",
	mcp.WithDescription("Save a work-progress snapshot. Provide context as free text, or structured_context with sections (description, files, decisions, blockers, errors_fixed, tests)."),
	mcp.WithString("summary", mcp.Required(), mcp.Description("Short description of the work (max 10,000 chars)")),
	mcp.WithString("context", mcp.Description("Free-text context payload")),
	mcp.WithObject("structured_context", mcp.Description("Structured context sections; rendered to text at write time")),
	mcp.WithString("session_id", mcp.Description("Session to save into; a new session-<uuid> is created when omitted")),
	mcp.WithString("project_path", mcp.Description("Project path recorded if the session is created")),
	mcp.WithArray("files_touched", mcp.Description("File paths involved in the work"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithArray("decisions", mcp.Description("Decisions made during the work"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("next_steps", mcp.Description("Planned follow-up work (max 5,000 chars)")),
	mcp.WithString("importance", mcp.Description("critical, important, normal, or reference; unrecognized values become normal")),
)

var listToolDef = mcp.NewTool("memory_list",
	mcp.WithDescription("List snapshots, newest first."),
	mcp.WithString("session_id", mcp.Description("Limit to one session")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 50, cap 100)")),
)

var restoreToolDef = mcp.NewTool("memory_restore",
	mcp.WithDescription("Assemble stored snapshots into a context blob within a token budget, oldest to newest."),
	mcp.WithString("session_id", mcp.Description("Limit to one session")),
	mcp.WithNumber("max_tokens", mcp.Description("Token budget (default 15000)")),
)

var injectToolDef = mcp.NewTool("memory_inject",
	mcp.WithDescription("Assemble a terse context blob for a new session, pre-filtered by topic or importance."),
	mcp.WithString("session_id", mcp.Description("Limit to one session")),
	mcp.WithString("topic", mcp.Description("Keep snapshots whose summary or context contains this substring")),
	mcp.WithBoolean("include_critical", mcp.Description("Also keep critical/important snapshots regardless of topic (default true)")),
	mcp.WithNumber("max_tokens", mcp.Description("Token budget (default 5000)")),
)

var searchToolDef = mcp.NewTool("memory_search",
	mcp.WithDescription("Search snapshots about a topic, ranked by relevance with a recency boost."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query; terms match independently")),
	mcp.WithString("session_id", mcp.Description("Limit to one session")),
	mcp.WithString("importance_floor", mcp.Description("Minimum importance tier to consider")),
	mcp.WithNumber("max_results", mcp.Description("Max results (default 5)")),
	mcp.WithString("strategy", mcp.Description("Scoring strategy: recency (default) or static")),
)

var statsToolDef = mcp.NewTool("memory_stats",
	mcp.WithDescription("Aggregate statistics for one session."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to report on")),
)

var cleanupToolDef = mcp.NewTool("memory_cleanup",
	mcp.WithDescription("Delete old snapshots: trim a session to its most recent entries, or delete below an id store-wide."),
	mcp.WithString("session_id", mcp.Description("Session to trim")),
	mcp.WithNumber("before_id", mcp.Description("Delete all snapshots with id below this, store-wide")),
	mcp.WithNumber("keep_recent", mcp.Description("Snapshots to keep per session (default 5)")),
)

var clearToolDef = mcp.NewTool("memory_clear",
	mcp.WithDescription("Delete a session and all of its snapshots."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to clear")),
)

var sessionsToolDef = mcp.NewTool("memory_sessions",
	mcp.WithDescription("List sessions, most recently active first, with aggregate counts."),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, cap 100)")),
)

var healthToolDef = mcp.NewTool("memory_health",
	mcp.WithDescription("Check store integrity and report store-wide totals."),
)
