// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup, database opening, and
// receiving-account resolution to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lherron/transplant/internal/accounts"
	"github.com/lherron/transplant/internal/config"
	"github.com/lherron/transplant/internal/db"
	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/store"
	"github.com/spf13/cobra"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Logger writes structured logs to stderr
	Logger *slog.Logger

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB with the record catalog (nil if NeedsDB is false)
	Store *store.Store

	// Account is the resolved receiving account (nil if NeedsAccount is false)
	Account *domain.Account
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// NeedsAccount indicates whether to resolve the receiving account.
	// Requires NeedsDB to also be true.
	NeedsAccount bool
}

// DefaultOptions returns default options (DB required, no account).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// WithAccount returns options that require both DB and account.
func WithAccount() Options {
	return Options{NeedsDB: true, NeedsAccount: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.LoadPath(flagValue(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Override DB path from --db flag if provided
	if dbPath := flagValue(cmd, "db"); dbPath != "" {
		app.Config.DBPath = dbPath
	}
	if flagValue(cmd, "verbose") == "true" {
		app.Config.LogLevel = "debug"
	}

	app.Logger, err = NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	if opts.NeedsDB {
		database, err := db.Open(app.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		if err := database.RequiresMigrationError(); err != nil {
			database.Close()
			return nil, err
		}

		app.DB = database
		app.Store = store.New(database, nil)
	}

	if opts.NeedsAccount {
		if app.DB == nil {
			app.Close()
			return nil, fmt.Errorf("account resolution requires database (set NeedsDB: true)")
		}

		account, err := resolveAccount(app.DB, app.Config, cmd)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Account = account
	}

	return app, nil
}

// NewLogger builds the slog logger described by cfg, writing to w.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// resolveAccount resolves the receiving account from --as, environment, or
// config. Inactive accounts cannot receive a merge.
func resolveAccount(database *db.DB, cfg *config.Config, cmd *cobra.Command) (*domain.Account, error) {
	identifier := flagValue(cmd, "as")
	if identifier == "" {
		identifier = cfg.GetAccountID()
	}
	if identifier == "" {
		return nil, fmt.Errorf("no account configured (set TRANSPLANT_ACCOUNT, default_account, or use --as flag)")
	}

	account, err := accounts.NewResolver(database.DB).Lookup(identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %s is inactive and cannot receive a merge", account.Label())
	}
	return account, nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
