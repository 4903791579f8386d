package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <session-id>",
	Short: "Regenerate outreach emails for a session's selected leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.RegenerateEmails(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "regenerate emails")
		}

		cmd.Printf("Leads:     %d\n", summary.TotalLeads)
		cmd.Printf("Succeeded: %d\n", summary.SuccessCount)
		cmd.Printf("Failed:    %d\n", summary.ErrorCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
