package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/common"
	"github.com/Veraticus/recon/internal/config"
	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived reconciliation reports",
		Long: `Completed reconciliations are saved to a local SQLite archive when
archive.enabled is set (or with run --archive). Use these commands to list,
inspect, re-export and delete them.`,
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyExportCmd())
	cmd.AddCommand(historyDeleteCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withArchive(cmd, func(archive service.ReportArchive) error {
				reports, err := archive.ListReports(cmd.Context(), limit)
				if err != nil {
					return err
				}
				writeLine(cmd.OutOrStdout(), cli.FormatReportList(reports))
				return nil
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "maximum number of reports to list")
	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, func(archive service.ReportArchive) error {
				report, err := archive.GetReport(cmd.Context(), args[0])
				if err != nil {
					return notFoundHint(err, args[0])
				}

				out := cmd.OutOrStdout()
				writeLine(out, cli.RenderBox("Report "+report.ID, fmt.Sprintf(
					"Created: %s\nBackend session: %s\nBank statement: %s\nInvoices: %s\n\nMatched pairs: %d\nUnmatched bank transactions: %d\nUnmatched invoices: %d",
					report.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					cli.TruncateSessionID(report.BackendSessionID),
					report.BankFile,
					report.InvoiceFile,
					report.MatchedPairs,
					report.UnmatchedBank,
					report.UnmatchedInvoices,
				)))
				writeLine(out, string(report.ReportJSON))
				return nil
			})
		},
	}
}

func historyExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write an archived report to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")
			if dir == "" {
				dir = config.ExpandPath(viper.GetString("export.dir"))
			}

			return withArchive(cmd, func(archive service.ReportArchive) error {
				report, err := archive.GetReport(cmd.Context(), args[0])
				if err != nil {
					return notFoundHint(err, args[0])
				}

				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("failed to create export directory: %w", err)
				}
				path := filepath.Join(dir, export.ReportFileName(report.CreatedAt))
				if err := os.WriteFile(path, report.ReportJSON, 0o600); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}

				writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Full report: "+path))
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "export directory (default: export.dir)")
	return cmd
}

func historyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skipConfirm, _ := cmd.Flags().GetBool("yes")
			out := cmd.OutOrStdout()

			return withArchive(cmd, func(archive service.ReportArchive) error {
				if _, err := archive.GetReport(cmd.Context(), args[0]); err != nil {
					return notFoundHint(err, args[0])
				}

				if !skipConfirm {
					reader := cli.NewNonBlockingReader(cmd.InOrStdin())
					ok, err := reader.Confirm(cmd.Context(), out, fmt.Sprintf("Delete report %s?", args[0]))
					if err != nil {
						return err
					}
					if !ok {
						writeLine(out, cli.FormatInfo("Nothing deleted"))
						return nil
					}
				}

				if err := archive.DeleteReport(cmd.Context(), args[0]); err != nil {
					return err
				}
				writeLine(out, cli.FormatSuccess("Deleted report "+args[0]))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// withArchive opens the configured archive for the duration of fn.
func withArchive(cmd *cobra.Command, fn func(service.ReportArchive) error) (err error) {
	path := config.ExpandPath(viper.GetString("archive.path"))
	if path == "" {
		return fmt.Errorf("%w: archive.path is empty", common.ErrMissingConfig)
	}

	archive, err := openArchive(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
	}()

	return fn(archive)
}

func notFoundHint(err error, id string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("no archived report with id %s (see `recon history list`)", id), err)
	}
	return err
}
