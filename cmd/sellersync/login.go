package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [profile-id-or-name...]",
	Short: "Log profiles into the seller centre in visible windows",
	Long: `Starts each profile, logs it in and leaves the window open so a person can
finish any manual step. With no arguments every profile in the credentials file is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		refs := args
		if len(refs) == 0 {
			refs = application.CredentialStore.ProfileIDs()
		}
		if len(refs) == 0 {
			return fmt.Errorf("no profiles given and no credentials loaded")
		}

		ctx, cancel := signalContext()
		defer cancel()

		results := application.LoginService.LoginMany(ctx, refs)

		failed := 0
		out := newTable(cmd.OutOrStdout(), "PROFILE", "RESULT", "2FA", "MESSAGE")
		for _, r := range results {
			if !r.Success {
				failed++
			}
			out.row(r.ProfileID, string(r.Kind), yesNo(r.Requires2FA), r.Message)
		}
		if err := out.flush(); err != nil {
			return err
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d logins failed", failed, len(results))
		}
		return nil
	},
}
