package main

import (
	"log/slog"
	"os"

	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/config"
	"github.com/Veraticus/recon/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Manage the Google Sheets export",
	}
	cmd.AddCommand(sheetsAuthCmd())
	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize recon to write reports to Google Sheets",
		Long: `Run the OAuth2 consent flow in your browser. The resulting token is stored
locally and its refresh token is printed so it can be set as
sheets.refresh_token (or GOOGLE_SHEETS_REFRESH_TOKEN).

The client id and secret come from sheets.client_id / sheets.client_secret
or GOOGLE_SHEETS_CLIENT_ID / GOOGLE_SHEETS_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: runSheetsAuth,
	}
	cmd.Flags().String("callback", sheets.DefaultCallbackAddr, "address the OAuth2 redirect listener binds to")
	return cmd
}

func runSheetsAuth(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	callback, _ := cmd.Flags().GetString("callback")

	clientID := firstNonEmpty(viper.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	clientSecret := firstNonEmpty(viper.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))

	tokenFile := config.SheetsTokenFile()
	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		Logger:       slog.Default(),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		CallbackAddr: callback,
		Open: func(authURL string) {
			writeLine(out, cli.FormatInfo("Open this URL in your browser to authorize recon:"))
			writeLine(out, authURL)
		},
	})
	if err != nil {
		return err
	}

	writeLine(out, cli.FormatSuccess("Authorization complete. Token saved to "+tokenFile))
	writeLine(out, cli.RenderBox("Refresh token", token.RefreshToken))
	writeLine(out, cli.FormatInfo("Set it as sheets.refresh_token or GOOGLE_SHEETS_REFRESH_TOKEN."))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
