package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/gavel/internal/config"
	"github.com/roach88/gavel/internal/engine"
	"github.com/roach88/gavel/internal/ir"
	"github.com/roach88/gavel/internal/registry"
	"github.com/roach88/gavel/internal/store"
)

var errTransfer = errors.New("payout not recorded")

// session is the state one command works against: the resolved config, the
// open journal, and a registry rebuilt from it.
type session struct {
	cfg   config.Config
	log   *slog.Logger
	out   *OutputFormatter
	store *store.Store
	reg   *registry.Registry
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger builds the slog logger from config, with --verbose forcing debug.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// withSession opens a session, runs fn, and closes the store. Errors from
// setup are reported before returning.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.store.Close(); cerr != nil {
			s.log.Warn("close database", "error", cerr)
		}
	}()
	return fn(ctx, s)
}

func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, out.Fail("load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)

	log.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database, store.WithBusyTimeout(cfg.BusyTimeout))
	if err != nil {
		return nil, out.Fail("open database", err)
	}

	reg := registry.New(registryOptions(opts, cfg, log, st)...)
	events, err := st.ReadEvents(ctx)
	if err == nil {
		err = reg.Restore(events)
	}
	if err != nil {
		st.Close()
		return nil, out.Fail("load journal", err)
	}
	log.Debug("journal loaded", "events", len(events), "auctions", reg.Len(), "seq", reg.Sequence().Current())

	return &session{cfg: cfg, log: log, out: out, store: st, reg: reg}, nil
}

func registryOptions(opts *RootOptions, cfg config.Config, log *slog.Logger, st *store.Store) []registry.Option {
	ro := []registry.Option{
		registry.WithJournal(st),
		registry.WithTransferer(engine.TransferFunc(func(ctx context.Context, p ir.Payout) error {
			if err := st.Transfer(ctx, p); err != nil {
				return fmt.Errorf("%w: %w", errTransfer, err)
			}
			return nil
		})),
		registry.WithDurationBounds(cfg.MinDuration, cfg.MaxDuration),
		registry.WithLogger(log),
	}
	if opts.Clock != nil {
		ro = append(ro, registry.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		ro = append(ro, registry.WithIDGenerator(opts.IDs))
	}
	return ro
}

// auction looks up id, reporting NOT_FOUND on failure.
func (s *session) auction(id string) (*engine.Auction, error) {
	a, err := s.reg.Get(id)
	if err != nil {
		return nil, s.out.Fail("lookup auction", err)
	}
	return a, nil
}
