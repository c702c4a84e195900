package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/recon/internal/backend"
	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/config"
	"github.com/Veraticus/recon/internal/health"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/session"
	"github.com/Veraticus/recon/internal/storage"
	"github.com/Veraticus/recon/internal/validation"
	"github.com/Veraticus/recon/internal/workflow"
	"github.com/spf13/cobra"
)

// app holds the components a command needs to drive one reconciliation session.
type app struct {
	cfg     *config.Config
	client  *backend.Client
	machine *workflow.Machine
}

// newApp wires the backend client, the health probe and the workflow machine. Probe
// retries are announced on out.
func newApp(out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	userAgent := "recon/" + version

	client, err := backend.NewClient(cfg.BackendURL,
		backend.WithLogger(logger),
		backend.WithUserAgent(userAgent),
	)
	if err != nil {
		return nil, err
	}

	probe, err := health.NewProbe(cfg.BackendURL,
		health.WithLogger(logger),
		health.WithRetryNotifier(func(attempt, maxAttempts int, delay time.Duration, cause *health.ProbeError) {
			writeLine(out, cli.FormatWarning(fmt.Sprintf("%s (attempt %d/%d). Retrying in %s...",
				cause.Message, attempt, maxAttempts, delay.Round(time.Second))))
		}),
	)
	if err != nil {
		return nil, err
	}

	machine, err := workflow.New(session.NewStore(), client, probe,
		workflow.WithLogger(logger),
		workflow.WithHealthRevalidation(cfg.Revalidate),
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, client: client, machine: machine}, nil
}

// applyExportFlags lets the --out and --archive flags override configuration.
func applyExportFlags(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("out") {
		dir, _ := cmd.Flags().GetString("out")
		a.cfg.ExportDir = config.ExpandPath(dir)
	}
	if cmd.Flags().Changed("archive") {
		a.cfg.ArchiveEnabled, _ = cmd.Flags().GetBool("archive")
	}
}

// loadFiles reads and validates the bank statement and invoice files.
func loadFiles(bankPath, invoicesPath string) (*model.FileCandidate, *model.FileCandidate, error) {
	bank, err := model.LoadFileCandidate(bankPath)
	if err != nil {
		return nil, nil, err
	}
	invoices, err := model.LoadFileCandidate(invoicesPath)
	if err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePair(bank, invoices); err != nil {
		return nil, nil, err
	}
	return bank, invoices, nil
}

// openArchive opens and migrates the report archive at path.
func openArchive(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// writeLine prints s followed by a newline. Output failures are logged, not returned.
func writeLine(w io.Writer, s string) {
	if _, err := fmt.Fprintln(w, s); err != nil {
		slog.Error("failed to write output", "error", err)
	}
}
