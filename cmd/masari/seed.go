package main

import (
	"fmt"

	"github.com/masari-app/masari/backend/internal/applications"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the demo applications when no applications document exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime()
			if err != nil {
				return err
			}
			defer runtime.Close() //nolint:errcheck

			seeded, err := runtime.applications.Seed(cmd.Context(), applications.DemoApplications())
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "applications document already exists; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d demo applications\n", len(applications.DemoApplications()))
			return nil
		},
	}
}
