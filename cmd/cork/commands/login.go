package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/finleyb/corkboard/internal/printer"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the Corkboard API",
	Long: `Authenticate with email and password, then store the session token
in ~/.corkboard/session.json for later commands.

Examples:
  cork login --email you@example.com --password secret`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (required)")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	_, sess, client, _, err := newClient()
	if err != nil {
		return err
	}

	user, err := client.Login(context.Background(), loginEmail, loginPassword)
	if err != nil {
		return printer.Error("Login failed", err.Error(), []string{
			"Check the email and password",
			"Check CORKBOARD_API_URL points at the right deployment",
		})
	}

	if err := saveSession(sess); err != nil {
		return err
	}
	printer.Success("Logged in as %s\n", user.Name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	_, _, client, _, err := newClient()
	if err != nil {
		return err
	}

	// Best effort server-side; the local session is cleared regardless.
	_ = client.Logout(context.Background())
	clearSession()
	printer.Success("Logged out\n")
	return nil
}
