package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/appearance"
	"github.com/hpungsan/fastnote/internal/config"
	"github.com/hpungsan/fastnote/internal/db"
	"github.com/hpungsan/fastnote/internal/ops"
	"github.com/hpungsan/fastnote/internal/session"
)

// envOptions configures newEnv. Getenv defaults to os.Getenv and WorkDir
// to the process working directory.
type envOptions struct {
	BaseDir string
	WorkDir string
	Getenv  func(string) string
}

// env holds what every command shares. The workspace is built on first use
// so that commands like theme never open the database.
type env struct {
	baseDir string
	cfg     *config.Config
	level   *slog.LevelVar
	logger  *slog.Logger
	guard   *session.Guard
	client  *api.Client

	db      *sql.DB
	ws      *ops.Workspace
	watcher *appearance.Watcher
}

func newEnv(opts envOptions) (*env, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.WorkDir == "" {
		opts.WorkDir, _ = os.Getwd()
	}

	cfg, err := config.LoadWithRepo(opts.BaseDir, opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg = config.ApplyEnv(cfg, opts.Getenv)

	// stdout carries command output and the MCP transport.
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var tokens session.TokenStore = session.NewTokenFile(opts.BaseDir)
	if tok := strings.TrimSpace(opts.Getenv("FASTNOTE_TOKEN")); tok != "" {
		tokens = session.StaticToken(tok)
	}
	guard := session.NewGuard(session.GuardOptions{Store: tokens, Logger: logger.With("component", "session")})
	guard.Load()

	client := api.New(api.Options{
		BaseURL: cfg.ServerURL,
		Token:   guard.Token,
		OnUnauthorized: func(err error) {
			guard.Invalidate(err.Error())
		},
		Timeout: cfg.RequestTimeout(),
		Logger:  logger.With("component", "api"),
	})

	return &env{
		baseDir: opts.BaseDir,
		cfg:     cfg,
		level:   level,
		logger:  logger,
		guard:   guard,
		client:  client,
	}, nil
}

// theme returns the appearance flag file.
func (e *env) theme() appearance.Preference {
	return appearance.Preference{Path: e.cfg.ThemePath(e.baseDir)}
}

// workspace builds the workspace once. With watch set, the editor follows
// changes to the theme flag file.
func (e *env) workspace(ctx context.Context, watch bool) (*ops.Workspace, error) {
	if e.ws != nil {
		return e.ws, nil
	}

	if !e.cfg.DisableSnapshot && e.db == nil {
		database, err := db.Init(e.baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		e.db = database
	}

	opts := ops.Options{
		API:        e.client,
		Guard:      e.guard,
		DB:         e.db,
		Config:     e.cfg,
		ExportsDir: ops.DefaultExportsDir(e.baseDir),
		Logger:     e.logger,
	}
	if watch {
		w, err := appearance.Watch(ctx, e.theme(), e.logger.With("component", "appearance"))
		if err != nil {
			e.logger.Warn("theme watch unavailable", "error", err)
		} else {
			e.watcher = w
			opts.Appearance = w
			opts.OnThemeChange = func(m appearance.Mode) {
				e.logger.Debug("theme changed", "mode", m)
			}
		}
	}

	e.ws = ops.New(opts)
	return e.ws, nil
}

// Close flushes pending edits and releases the database and watcher.
func (e *env) Close() {
	if e.ws != nil {
		e.ws.Close()
	}
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
}
