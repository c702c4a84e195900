package main

import (
	"fmt"

	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/common"
	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the reconciliation backend is reachable",
		Long: `Probe GET /health on the configured backend. Connection failures and
timeouts are retried with exponential backoff before giving up.`,
		Args: cobra.NoArgs,
		RunE: runHealth,
	}
}

func runHealth(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	a, err := newApp(out)
	if err != nil {
		return err
	}

	writeLine(out, cli.FormatInfo("Backend URL: "+a.cfg.BackendURL))

	spinner := cli.StartSpinner(cmd.ErrOrStderr(), "Checking backend connection...")
	status, err := a.machine.CheckHealth(cmd.Context())
	spinner.Stop()

	writeLine(out, cli.FormatHealth(a.machine.Session()))
	if err != nil {
		return common.NewUserError("backend health check failed", err)
	}

	if status.Attempts > 1 {
		writeLine(out, cli.FormatInfo(fmt.Sprintf("Connected after %d attempts", status.Attempts)))
	}
	return nil
}
