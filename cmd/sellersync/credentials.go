package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials [file]",
	Short: "Parse a credentials spreadsheet and show what would be loaded",
	Long: `Parses the spreadsheet given as argument (or --credentials / [credentials] file)
and lists the usable rows. Passwords and two-factor secrets are never printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			config.Credentials.File = args[0]
		}
		if config.Credentials.File == "" {
			return fmt.Errorf("no credentials file given")
		}

		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		out := newTable(cmd.OutOrStdout(), "PROFILE ID", "NAME", "EMAIL", "2FA")
		for _, s := range application.CredentialStore.Summaries() {
			out.row(s.ProfileID, s.ProfileName, s.Email, yesNo(s.HasTOTP))
		}
		if err := out.flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d usable rows\n", application.CredentialStore.Count())
		return nil
	},
}
