package cli

import (
	"context"
	"errors"
	"io"

	"github.com/roach88/cppcell/internal/config"
	"github.com/roach88/cppcell/internal/engine"
	"github.com/roach88/cppcell/internal/store"
	"github.com/roach88/cppcell/internal/supervisor"
	"github.com/roach88/cppcell/internal/vin"
)

// sessionIO is where a session's output goes and where program input
// comes from.
type sessionIO struct {
	Stdout io.Writer
	Stderr io.Writer
	Input  vin.InputSource
}

// openSession builds an engine session from cfg: journal, supervisor,
// optional virtual-input bridge and toolchain. The returned cleanup closes
// all of them and removes the session's artifacts.
func openSession(ctx context.Context, cfg *config.Config, sio sessionIO) (*engine.Session, func() error, error) {
	journal, err := store.Open(cfg.Journal)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	closers := []func() error{journal.Close}

	opts := []engine.Option{
		engine.WithToolchain(cfg.Toolchain()),
		engine.WithSupervisor(supervisor.New(cfg.SupervisorOptions()...)),
		engine.WithJournal(journal),
		engine.WithSink(supervisor.WriterSink{Stdout: sio.Stdout, Stderr: sio.Stderr}),
		engine.WithPrintInfos(cfg.PrintInfos),
		engine.WithArtifactRoot(cfg.ArtifactRoot),
	}

	if cfg.VIN.Enabled && sio.Input != nil {
		svc, err := vin.NewGRPCService(cfg.VIN.Address, vin.WithServiceName(cfg.VIN.Service))
		if err != nil {
			closeAll(closers)
			return nil, nil, WrapExitError(ExitCommandError, "failed to set up virtual input", err)
		}
		closers = append(closers, svc.Close)
		opts = append(opts, engine.WithBridge(vin.NewBridge(svc, sio.Input, cfg.BridgeOptions()...)))
	}

	sess, err := engine.NewSession(ctx, opts...)
	if err != nil {
		closeAll(closers)
		return nil, nil, WrapExitError(ExitCommandError, "failed to start session", err)
	}
	// The session goes first: its artifacts are removed before the journal closes.
	closers = append([]func() error{sess.Close}, closers...)

	return sess, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
