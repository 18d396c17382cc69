package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/mcp"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/ops"
	"github.com/hpungsan/fastnote/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "fastnote",
		Usage:   "Notes with autosave",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Log debug output to stderr"},
		},
		Before: func(c *cli.Context) error {
			if e != nil && c.Bool("debug") {
				e.level.Set(slog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			loginCmd(e),
			signupCmd(e),
			logoutCmd(e),
			whoamiCmd(e),
			listCmd(e),
			searchCmd(e),
			tagsCmd(e),
			createCmd(e),
			showCmd(e),
			editCmd(e),
			deleteCmd(e),
			exportCmd(e),
			importCmd(e),
			themeCmd(e),
			uiCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loginCmd creates the login command.
func loginCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in (reads the password from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account name"},
		},
		Action: func(c *cli.Context) error {
			password, ok, err := readInput(c)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			password = strings.TrimSpace(password)
			if !ok || password == "" {
				return outputError(errors.NewInvalidRequest("password must be piped via stdin"))
			}

			resp, err := e.client.Login(c.Context, c.String("username"), password)
			if err != nil {
				return outputError(err)
			}
			s := e.guard.SetToken(resp.Token)
			if s == nil {
				return outputError(errors.NewAuthInvalid("login returned an unusable token"))
			}
			return outputJSON(c, s)
		},
	}
}

// signupCmd creates the signup command.
func signupCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account (reads the password from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account name"},
		},
		Action: func(c *cli.Context) error {
			password, ok, err := readInput(c)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			password = strings.TrimSpace(password)
			if !ok || password == "" {
				return outputError(errors.NewInvalidRequest("password must be piped via stdin"))
			}

			if err := e.client.Signup(c.Context, c.String("username"), password); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"created": true, "username": c.String("username")})
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the cached note list",
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := ws.ClearSnapshot(c.Context); err != nil {
				e.logger.Warn("snapshot clear failed", "error", err)
			}
			e.guard.Invalidate("logout")
			return outputJSON(c, map[string]bool{"logged_out": true})
		},
	}
}

// whoamiCmd creates the whoami command.
func whoamiCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			s := e.guard.Session()
			if s == nil {
				return outputError(errors.NewAuthInvalid("not logged in"))
			}
			return outputJSON(c, s)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List notes, optionally filtered (#tag, OR(#a, #b), title text)",
		ArgsUsage: "[query...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Reload from the note store"},
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			// Each invocation starts with an empty cache, so this always loads.
			output, err := ws.List(c.Context, ops.ListInput{
				Query:   strings.Join(c.Args().Slice(), " "),
				Refresh: c.Bool("refresh"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search notes on the note store",
		ArgsUsage: "<term>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("search term is required"))
			}
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ws.Search(c.Context, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// tagsCmd creates the tags command.
func tagsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags with their colours",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "suggest", Aliases: []string{"s"}, Usage: "Complete the #tag prefix at the end of this input"},
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if c.IsSet("suggest") {
				// Suggestions come from the cached notes.
				if _, err := ws.Refresh(c.Context); err != nil {
					return outputError(err)
				}
				return outputJSON(c, ops.TagViews(ws.Suggest(c.String("suggest"))))
			}
			output, err := ws.Tags(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// createCmd creates the create command.
func createCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a note (initial content may be piped via stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Value: "text", Usage: "Note type: text|scene"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title (default \"New Note\")"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			typ, err := note.ParseType(c.String("type"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			content, _, err := readInput(c)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ws.Create(c.Context, ops.CreateInput{
				Type:    typ,
				Title:   c.String("title"),
				Content: content,
				Tags:    c.String("tags"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Include an HTML preview"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("note id is required"))
			}
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ws.Show(c.Context, note.ID(c.Args().First()), c.Bool("html"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// editCmd creates the edit command.
func editCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note and save it (new content may be piped via stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "tags", Usage: "Replacement tags, comma-separated (empty clears)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("note id is required"))
			}

			input := ops.UpdateInput{ID: note.ID(c.Args().First())}
			if c.IsSet("title") {
				title := c.String("title")
				input.Title = &title
			}
			if c.IsSet("tags") {
				input.Tags = append([]string{}, note.SplitTags(c.String("tags"))...)
			}
			content, ok, err := readInput(c)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if ok {
				input.Content = &content
			}
			if input.Title == nil && input.Tags == nil && input.Content == nil {
				return outputError(errors.NewInvalidRequest("nothing to change: pass --title, --tags, or pipe content"))
			}

			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ws.Update(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("note id is required"))
			}
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ws.Delete(c.Context, note.ID(c.Args().First()))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all notes to a JSON file in ~/.fastnote/exports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: notes-<user>-<timestamp>.json)"},
			&cli.BoolFlag{Name: "stdout", Usage: "Write the export to stdout instead of a file"},
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if c.Bool("stdout") {
				if _, err := ws.Export(c.Context, c.App.Writer); err != nil {
					return outputError(err)
				}
				return nil
			}
			output, err := ws.ExportFile(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import notes from a JSON export (\"-\" reads stdin)",
		ArgsUsage: "<path|->",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("import path is required"))
			}
			ws, err := e.workspace(c.Context, false)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var output *ops.ImportOutput
			if path := c.Args().First(); path == "-" {
				output, err = ws.Import(c.Context, c.App.Reader)
			} else {
				output, err = ws.ImportFile(c.Context, path)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// themeCmd creates the theme command.
func themeCmd(e *env) *cli.Command {
	show := func(c *cli.Context, m any) error {
		return outputJSON(c, map[string]any{"mode": m})
	}
	return &cli.Command{
		Name:  "theme",
		Usage: "Read or change the light/dark preference",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the current mode",
				Action: func(c *cli.Context) error {
					return show(c, e.theme().Read())
				},
			},
			{
				Name:      "set",
				Usage:     "Set the mode",
				ArgsUsage: "<light|dark>",
				Action: func(c *cli.Context) error {
					m, err := e.theme().Set(c.Args().First())
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					return show(c, m)
				},
			},
			{
				Name:  "toggle",
				Usage: "Flip between light and dark",
				Action: func(c *cli.Context) error {
					m, err := e.theme().Toggle()
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					return show(c, m)
				},
			},
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Browse notes in a local web view",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: 8765, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, true)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			logger := e.logger.With("component", "web")
			srv, err := web.NewServer(web.Options{
				Workspace: ws,
				Theme:     e.theme(),
				Version:   Version,
				Bind:      c.String("bind"),
				Port:      c.Int("port"),
				Logger:    logger,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			fmt.Fprintf(c.App.ErrWriter, "fastnote ui running at http://%s\n", srv.Addr)
			return web.Run(c.Context, srv, logger)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(c *cli.Context) error {
			ws, err := e.workspace(c.Context, true)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return mcp.Run(ws, e.cfg, Version, e.logger.With("component", "mcp"))
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var nErr *errors.NoteError
	if stderrors.As(err, &nErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readInput reads piped input. ok is false when stdin is a terminal or
// nothing was piped. A single trailing newline is dropped.
func readInput(c *cli.Context) (string, bool, error) {
	if f, isFile := c.App.Reader.(*os.File); isFile && !stdinHasData(f) {
		return "", false, nil
	}
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return strings.TrimSuffix(string(data), "\n"), true, nil
}

// stdinHasData returns true if f has piped data (not a terminal).
func stdinHasData(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
