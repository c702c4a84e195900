package main

import (
	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/common"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile a bank statement against an invoice file",
		Long: `Run the whole reconciliation in one go: check the backend, upload and
preprocess both files, identify the key columns, run AI matching and export
the results.

Exports go to --out: the matched transactions CSV (skipped when nothing
matched), the full JSON report and, with --xlsx, an Excel workbook.`,
		Example: `  recon run --bank statement.csv --invoices invoices.xlsx
  recon run --bank statement.csv --invoices invoices.csv --out reports --xlsx --sheets`,
		Args: cobra.NoArgs,
		RunE: runReconcile,
	}

	cmd.Flags().String("bank", "", "bank statement file (csv, xlsx, xls)")
	cmd.Flags().String("invoices", "", "invoice file (csv, xlsx, xls)")
	cmd.Flags().String("out", "", "export directory (default: export.dir)")
	cmd.Flags().Bool("xlsx", false, "also write an Excel workbook")
	cmd.Flags().Bool("sheets", false, "also write the results to Google Sheets")
	cmd.Flags().Bool("archive", false, "save the report to the local archive")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("invoices")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	bankPath, _ := cmd.Flags().GetString("bank")
	invoicesPath, _ := cmd.Flags().GetString("invoices")

	bank, invoices, err := loadFiles(bankPath, invoicesPath)
	if err != nil {
		return err
	}
	writeLine(out, cli.FormatFileLoaded("Bank statement", bank))
	writeLine(out, cli.FormatFileLoaded("Invoices", invoices))

	a, err := newApp(out)
	if err != nil {
		return err
	}
	applyExportFlags(cmd, a)

	handler := cli.NewInterruptHandler(out)
	ctx := handler.HandleInterrupts(cmd.Context(), "Nothing was exported. Run the command again to start a new session.")

	opts, closeExport, err := newExportOptions(ctx, cmd, a, bank, invoices)
	if err != nil {
		return err
	}
	defer closeExport()

	steps := []struct {
		progress string
		run      func() (string, error)
	}{
		{"Checking backend connection...", func() (string, error) {
			_, err := a.machine.CheckHealth(ctx)
			return cli.FormatHealth(a.machine.Session()), err
		}},
		{"Uploading and preprocessing files...", func() (string, error) {
			result, err := a.machine.Upload(ctx, bank, invoices)
			if err != nil {
				return "", err
			}
			return cli.FormatUploadSummary(result), nil
		}},
		{"Identifying key columns with AI...", func() (string, error) {
			info, err := a.machine.IdentifyColumns(ctx)
			if err != nil {
				return "", err
			}
			return cli.FormatColumnInfo(info), nil
		}},
		{"Running AI reconciliation... This may take a few minutes.", func() (string, error) {
			result, err := a.machine.Match(ctx)
			if err != nil {
				return "", err
			}
			return cli.FormatMatchSummary(result), nil
		}},
		{"Exporting results...", func() (string, error) {
			return exportSession(ctx, a.machine.Session(), opts)
		}},
	}

	for _, step := range steps {
		spinner := cli.StartSpinner(cmd.ErrOrStderr(), step.progress)
		text, err := step.run()
		spinner.Stop()

		if text != "" {
			writeLine(out, text)
		}
		if err != nil {
			if handler.WasInterrupted() {
				return common.NewUserError("reconciliation interrupted", err)
			}
			return err
		}
	}

	return nil
}
