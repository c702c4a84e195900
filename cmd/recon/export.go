package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/config"
	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/service"
	"github.com/Veraticus/recon/internal/sheets"
	"github.com/spf13/cobra"
)

// exportOptions controls where a completed session is written.
type exportOptions struct {
	// Archive and Sheets are optional destinations; nil skips them.
	Archive     service.ReportArchive
	Sheets      service.ReportWriter
	Now         func() time.Time
	Dir         string
	BankFile    string
	InvoiceFile string
	Workbook    bool
}

// exportSession writes the results of a completed session and returns a summary of
// what was produced. Files are written first; archive and sheets follow.
func exportSession(ctx context.Context, s model.Session, opts exportOptions) (string, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	bundle, err := export.FromSession(s, now())
	if err != nil {
		return "", err
	}

	files, err := export.WriteFiles(opts.Dir, bundle, opts.Workbook)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(cli.FormatExportFiles(files))

	if opts.Archive != nil {
		record := bundle.Archive(opts.BankFile, opts.InvoiceFile)
		if err := opts.Archive.SaveReport(ctx, record); err != nil {
			return b.String(), fmt.Errorf("failed to archive report: %w", err)
		}
		b.WriteString(cli.FormatSuccess("Report archived as "+record.ID) + "\n")
	}

	if opts.Sheets != nil {
		if err := opts.Sheets.Write(ctx, bundle.Result, bundle.Matched); err != nil {
			return b.String(), fmt.Errorf("failed to write Google Sheets report: %w", err)
		}
		b.WriteString(cli.FormatSuccess("Results written to Google Sheets") + "\n")
	}

	return b.String(), nil
}

// newExportOptions resolves the export destinations from the command flags and the
// configuration. The returned func releases the archive.
func newExportOptions(ctx context.Context, cmd *cobra.Command, a *app, bank, invoices *model.FileCandidate) (exportOptions, func(), error) {
	withWorkbook, _ := cmd.Flags().GetBool("xlsx")
	withSheets, _ := cmd.Flags().GetBool("sheets")

	opts := exportOptions{
		Dir:      a.cfg.ExportDir,
		Workbook: withWorkbook,
	}
	if bank != nil && invoices != nil {
		opts.BankFile, opts.InvoiceFile = bank.Name, invoices.Name
	}

	if withSheets {
		writer, err := newSheetsWriter(ctx)
		if err != nil {
			return opts, nil, err
		}
		opts.Sheets = writer
	}

	if !a.cfg.ArchiveEnabled {
		return opts, func() {}, nil
	}

	archive, err := openArchive(ctx, a.cfg.ArchivePath)
	if err != nil {
		return opts, nil, err
	}
	opts.Archive = archive

	return opts, func() {
		if err := archive.Close(); err != nil {
			slog.Warn("failed to close archive", "error", err)
		}
	}, nil
}

// newSheetsWriter builds the Google Sheets writer from configuration.
func newSheetsWriter(ctx context.Context) (*sheets.Writer, error) {
	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, fmt.Errorf("google sheets is not configured: %w", err)
	}
	return sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
}
