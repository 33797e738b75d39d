package main

import (
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the profiles known to the profile manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		descriptors, err := application.ProfileController.List(ctx)
		if err != nil {
			return err
		}

		out := newTable(cmd.OutOrStdout(), "ID", "NAME", "GROUP", "STATUS", "CREDENTIALS")
		for _, d := range descriptors {
			out.row(d.ID, d.Name, d.Group, d.Status, yesNo(application.CredentialStore.GetByProfileID(d.ID) != nil))
		}
		return out.flush()
	},
}
