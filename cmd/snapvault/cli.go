package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/ops"
	"github.com/nmarks/snapvault/internal/snapshot"
	"github.com/nmarks/snapvault/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "snapvault",
		Usage:   "Local session-memory store and context assembler",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(db, cfg),
			listCmd(db),
			restoreCmd(db, cfg),
			injectCmd(db, cfg),
			searchCmd(db),
			statsCmd(db),
			cleanupCmd(db),
			clearCmd(db),
			sessionsCmd(db),
			healthCmd(db),
			webCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a snapshot (reads context text from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Session id (generated when omitted)"},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project path recorded on session creation"},
			&cli.StringFlag{Name: "summary", Aliases: []string{"m"}, Usage: "Short summary of the work", Required: true},
			&cli.StringFlag{Name: "importance", Aliases: []string{"i"}, Value: "normal", Usage: "critical|important|normal|reference"},
			&cli.StringFlag{Name: "files", Usage: "Comma-separated file paths touched"},
			&cli.StringFlag{Name: "decisions", Usage: "Comma-separated decisions made"},
			&cli.StringFlag{Name: "next", Usage: "Planned next steps"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("context must be piped via stdin"))
			}

			contextText, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if contextText == "" {
				return outputError(errors.NewInvalidRequest("context is required"))
			}

			input := ops.SaveInput{
				Summary:    c.String("summary"),
				Context:    snapshot.Context{FreeText: contextText},
				Importance: c.String("importance"),
			}

			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}
			if project := c.String("project"); project != "" {
				input.ProjectPath = &project
			}
			if files := c.String("files"); files != "" {
				input.FilesTouched = splitList(files)
			}
			if decisions := c.String("decisions"); decisions != "" {
				input.Decisions = splitList(decisions)
			}
			if next := c.String("next"); next != "" {
				input.NextSteps = &next
			}

			output, err := ops.Save(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List snapshots, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Limit to one session"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max results (default 50)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{Limit: c.Int("limit")}
			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}

			output, err := ops.List(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Assemble stored snapshots into a context blob within a token budget",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Limit to one session"},
			&cli.IntFlag{Name: "max-tokens", Usage: "Token budget (default 15000)"},
			&cli.BoolFlag{Name: "text", Usage: "Print only the assembled text"},
		},
		Action: func(c *cli.Context) error {
			input := ops.AssembleInput{MaxTokens: c.Int("max-tokens")}
			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}

			output, err := ops.AssembleContext(db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("text") {
				fmt.Println(output.Text)
				return nil
			}
			return outputJSON(output)
		},
	}
}

// injectCmd creates the inject command.
func injectCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "inject",
		Usage: "Assemble a terse context blob for a new session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Limit to one session"},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Keep snapshots matching this substring"},
			&cli.BoolFlag{Name: "no-critical", Usage: "Drop the critical/important fallback filter"},
			&cli.IntFlag{Name: "max-tokens", Usage: "Token budget (default 5000)"},
			&cli.BoolFlag{Name: "text", Usage: "Print only the assembled text"},
		},
		Action: func(c *cli.Context) error {
			input := ops.InjectInput{MaxTokens: c.Int("max-tokens")}
			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}
			if topic := c.String("topic"); topic != "" {
				input.Topic = &topic
			}
			if c.Bool("no-critical") {
				includeCritical := false
				input.IncludeCritical = &includeCritical
			}

			output, err := ops.AssembleForInjection(db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("text") {
				fmt.Println(output.Text)
				return nil
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search snapshots about a topic, ranked by relevance",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Limit to one session"},
			&cli.StringFlag{Name: "importance-floor", Usage: "Minimum importance tier"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max results (default 5)"},
			&cli.BoolFlag{Name: "static", Usage: "Score without the recency boost"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")

			input := ops.SearchInput{
				Query:      query,
				MaxResults: c.Int("limit"),
			}
			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}
			if floor := c.String("importance-floor"); floor != "" {
				input.ImportanceFloor = &floor
			}
			if c.Bool("static") {
				input.Strategy = ops.ScoreStatic
			}

			output, err := ops.SearchAbout(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Aggregate statistics for one session",
		ArgsUsage: "<session-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(db, ops.StatsInput{SessionID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// cleanupCmd creates the cleanup command.
func cleanupCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete old snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Session to trim"},
			&cli.Int64Flag{Name: "before-id", Usage: "Delete all snapshots with id below this, store-wide"},
			&cli.IntFlag{Name: "keep-recent", Value: ops.DefaultKeepRecent, Usage: "Snapshots to keep per session"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CleanupInput{}
			if session := c.String("session"); session != "" {
				input.SessionID = &session
			}
			if c.IsSet("before-id") {
				beforeID := c.Int64("before-id")
				input.BeforeID = &beforeID
			}
			if c.IsSet("keep-recent") {
				keepRecent := c.Int("keep-recent")
				input.KeepRecent = &keepRecent
			}

			output, err := ops.Cleanup(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "Delete a session and all of its snapshots",
		ArgsUsage: "<session-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Clear(c.Context, db, ops.ClearInput{SessionID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List sessions, most recently active first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max results (default 20)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSessions(db, ops.ListSessionsInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check store integrity and report totals",
		Action: func(c *cli.Context) error {
			output, err := ops.HealthCheck(db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the read-only web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8990, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := err.(*errors.VaultError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// splitList splits a comma-separated string into a trimmed slice.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			list = append(list, t)
		}
	}
	return list
}
