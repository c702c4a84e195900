package main

import (
	"context"
	"errors"
	"io"

	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/tui"
	"github.com/Veraticus/recon/internal/tui/themes"
	"github.com/spf13/cobra"
)

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"tui"},
		Short:   "Step through a reconciliation in a terminal UI",
		Long: `Open the interactive reconciliation screen. Each stage runs on demand:
h checks the backend, u uploads the files, c identifies the key columns,
m runs AI matching, e exports the results and r resets the session.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}

	cmd.Flags().String("bank", "", "bank statement file (csv, xlsx, xls)")
	cmd.Flags().String("invoices", "", "invoice file (csv, xlsx, xls)")
	cmd.Flags().String("out", "", "export directory (default: export.dir)")
	cmd.Flags().Bool("xlsx", false, "also write an Excel workbook on export")
	cmd.Flags().Bool("sheets", false, "also write the results to Google Sheets on export")
	cmd.Flags().Bool("archive", false, "save exported reports to the local archive")
	cmd.Flags().String("theme", "default", "color theme (default, catppuccin)")

	return cmd
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bankPath, _ := cmd.Flags().GetString("bank")
	invoicesPath, _ := cmd.Flags().GetString("invoices")
	themeName, _ := cmd.Flags().GetString("theme")

	theme, err := themes.Lookup(themeName)
	if err != nil {
		return err
	}

	if (bankPath == "") != (invoicesPath == "") {
		return errors.New("--bank and --invoices must be given together")
	}

	var bank, invoices *model.FileCandidate
	if bankPath != "" {
		bank, invoices, err = loadFiles(bankPath, invoicesPath)
		if err != nil {
			return err
		}
	}

	// Probe retry notices would corrupt the alternate screen.
	a, err := newApp(io.Discard)
	if err != nil {
		return err
	}
	applyExportFlags(cmd, a)

	opts, closeExport, err := newExportOptions(ctx, cmd, a, bank, invoices)
	if err != nil {
		return err
	}
	defer closeExport()

	return tui.Run(ctx, a.machine,
		tui.WithTheme(theme),
		tui.WithFiles(bank, invoices),
		tui.WithBackend(a.cfg.BackendURL, a.client.Timeout()),
		tui.WithExporter(func(ctx context.Context, s model.Session) (string, error) {
			return exportSession(ctx, s, opts)
		}),
	)
}
