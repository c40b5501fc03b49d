package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moesafa-mgf/genie-haus/internal/config"
	"github.com/moesafa-mgf/genie-haus/internal/httpapi"
	"github.com/moesafa-mgf/genie-haus/internal/logger"
	"github.com/moesafa-mgf/genie-haus/internal/memstore"
	"github.com/moesafa-mgf/genie-haus/internal/postgres"
	"github.com/moesafa-mgf/genie-haus/internal/syncer"
	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/sqlite"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// storeHandle is an opened backend. admin is nil when the backend cannot
// maintain roles and staff (the http client).
type storeHandle struct {
	remote types.RemoteStore
	staff  types.StaffDirectory
	admin  types.AccessAdmin
	close  func() error
}

func noClose() error { return nil }

// openStore opens the configured backend. The postgres schema is migrated
// before the pool is created.
func openStore(ctx context.Context, s config.Settings, log *zap.Logger) (*storeHandle, error) {
	switch s.Store.Backend {
	case types.BackendSQLite:
		b := sqlite.NewBackend()
		if err := b.Attach(s.Store); err != nil {
			return nil, sysError("attach sqlite store: %w", err)
		}
		return &storeHandle{remote: b, staff: b, admin: b, close: b.Detach}, nil

	case types.BackendPostgres:
		if err := postgres.Migrate(s.Store.DatabaseURL); err != nil {
			return nil, sysError("migrate database: %w", err)
		}
		st, err := postgres.New(ctx, s.Store.DatabaseURL, postgres.WithLogger(log))
		if err != nil {
			return nil, sysError("connect database: %w", err)
		}
		return &storeHandle{remote: st, staff: st, admin: st, close: func() error {
			st.Close()
			return nil
		}}, nil

	case types.BackendHTTP:
		c := httpapi.NewClient(s.Store.RemoteURL)
		return &storeHandle{remote: c, staff: c, close: noClose}, nil

	case types.BackendMemory:
		m := memstore.New()
		return &storeHandle{remote: m, staff: m, admin: m, close: noClose}, nil
	}
	return nil, userError("%w: %q", types.ErrBackendUnknown, s.Store.Backend)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

// newLogger returns the configured logger when forced or when --verbose is
// set, and a no-op logger otherwise.
func newLogger(s config.Settings, force bool) (*zap.Logger, error) {
	if !force && !flags.verbose {
		return nopLogger(), nil
	}
	l, err := logger.New(s.LogDevelopment)
	if err != nil {
		return nil, sysError("build logger: %w", err)
	}
	return l, nil
}

// session is one selected workspace with its sync controller.
type session struct {
	settings config.Settings
	log      *zap.Logger
	store    *storeHandle
	ws       *workspace.Workspace
	sync     *syncer.Controller
}

// openSession opens the store, selects the configured workspace and pulls it.
// sched drives the controller's push debounce and pull interval.
func openSession(cmd *cobra.Command, sched syncer.Scheduler, forceLog bool) (*session, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if err := settings.RequireTarget(); err != nil {
		return nil, userError("%w", err)
	}
	log, err := newLogger(settings, forceLog)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, settings, log)
	if err != nil {
		return nil, err
	}

	ws := workspace.New(settings.Tenant, "", workspace.WithTerminalStatus(settings.Store.TerminalStatus))
	ctrl := syncer.New(ws, st.remote, settings.Actor,
		syncer.WithScheduler(sched),
		syncer.WithLogger(log),
		syncer.WithPushDebounce(settings.Store.PushDebounce),
		syncer.WithPullInterval(settings.Store.PullInterval),
		syncer.WithStaffDirectory(st.staff),
	)
	if err := ctrl.Select(ctx, settings.Workspace); err != nil {
		_ = st.close()
		return nil, sysError("load workspace %q: %w", settings.Workspace, err)
	}

	return &session{settings: settings, log: log, store: st, ws: ws, sync: ctrl}, nil
}

// Close stops the controller, pushes any pending change and closes the
// store.
func (s *session) Close(ctx context.Context) error {
	s.sync.Stop()
	var errs []error
	if err := s.sync.Flush(ctx); err != nil {
		errs = append(errs, sysError("push workspace: %w", err))
	}
	if err := s.store.close(); err != nil {
		errs = append(errs, sysError("close store: %w", err))
	}
	_ = s.log.Sync()
	return errors.Join(errs...)
}

// actor returns the configured actor email, failing when none is set.
func (s *session) actor() (string, error) {
	if s.settings.Actor == "" {
		return "", userError("actor is not configured (set actor in config.yaml, GENIE_ACTOR or --actor)")
	}
	return s.settings.Actor, nil
}

// withSession runs fn against a freshly pulled workspace and flushes its
// pending push before returning.
func withSession(cmd *cobra.Command, fn func(*session) error) (err error) {
	s, err := openSession(cmd, syncer.FlushOnly{}, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(cmd.Context()); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
