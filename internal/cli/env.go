package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/config"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/refdata"
	"github.com/roach88/deployfin/internal/store"
)

// session is an open store plus the manager loaded from it.
type session struct {
	store *store.Store
	mgr   *lifecycle.Manager
}

// Close releases the database.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// databasePath resolves --db over general.database_path.
func (o *RootOptions) databasePath() string {
	if o.Database != "" {
		return o.Database
	}
	return o.cfg.General.DatabasePath
}

// openSession opens the database, loads reference tables and starts the
// manager.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	path := o.databasePath()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}

	tables, err := refdata.Load(o.cfg.General.ReferenceDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load reference data", err)
	}

	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	opts := []lifecycle.Option{lifecycle.WithTables(tables)}
	if o.Clock != nil {
		opts = append(opts, lifecycle.WithClock(o.Clock))
	}
	if o.IDs != nil {
		opts = append(opts, lifecycle.WithIDGenerator(o.IDs))
	}
	if endpoint := config.SyncEndpoint(o.cfg); endpoint != "" {
		opts = append(opts, lifecycle.WithSyncer(NewHTTPSyncer(endpoint, o.cfg.SyncTimeout())))
	}

	mgr, err := lifecycle.New(cmd.Context(), st, opts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	return &session{store: st, mgr: mgr}, nil
}

// withSession runs fn against an open session and maps its error to an
// exit code, reporting it through the formatter.
func (o *RootOptions) withSession(cmd *cobra.Command, op string, fn func(s *session, f *OutputFormatter) error) error {
	f := o.formatter(cmd)
	s, err := o.openSession(cmd)
	if err != nil {
		return f.Fail(op, err)
	}
	defer s.Close()
	f.VerboseLog("database: %s", o.databasePath())

	if err := fn(s, f); err != nil {
		return f.Fail(op, err)
	}
	return nil
}

// usageError is returned for malformed flag values.
func usageError(format string, args ...any) error {
	return NewExitError(ExitCommandError, fmt.Sprintf(format, args...))
}
