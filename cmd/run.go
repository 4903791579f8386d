package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siyada/leadgen-cli/internal/model"
)

var (
	runQuery         string
	runSenderContext string
	runUserID        string
	runJSON          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lead-generation pipeline for a single query",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runQuery == "" {
			return eris.New("--query is required")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		session, err := env.Store.CreateSession(ctx, runUserID, runQuery, runSenderContext)
		if err != nil {
			return eris.Wrap(err, "create session")
		}

		summary := env.Pipeline.Run(ctx, session.ID, session.RawQuery, session.SenderContext)

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		cmd.Printf("Session:        %s\n", summary.SessionID)
		cmd.Printf("Status:         %s\n", summary.Status)
		cmd.Printf("Search results: %d\n", summary.SearchResults)
		cmd.Printf("Pages scraped:  %d/%d\n", summary.Scraped.Succeeded, summary.Scraped.Attempted)
		cmd.Printf("Domains:        %d/%d\n", summary.Domains.Succeeded, summary.Domains.Attempted)
		cmd.Printf("Leads:          %d", summary.Contacts)
		if summary.Fallback {
			cmd.Printf(" (organization-only fallback)")
		}
		cmd.Printf("\n")
		cmd.Printf("Emails drafted: %d/%d\n", summary.Emails.Succeeded, summary.Emails.Attempted)

		if summary.Status != model.SessionStatusCompleted {
			return eris.New("pipeline run failed")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runQuery, "query", "", "audience query, e.g. \"dental clinics in Austin\"")
	runCmd.Flags().StringVar(&runSenderContext, "sender", "", "what the sender offers, used for email personalization")
	runCmd.Flags().StringVar(&runUserID, "user", "", "user ID to attribute the session to")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(runCmd)
}
