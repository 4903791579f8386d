package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siyada/leadgen-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's selected leads as HubSpot-ready CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sessionID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if _, err := st.GetSession(ctx, sessionID); err != nil {
			return eris.Wrap(err, "load session")
		}

		leads, err := st.ListLeads(ctx, sessionID, true)
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			return eris.New("no selected leads for this session")
		}

		out, err := export.GenerateCSV(leads)
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = export.Filename(sessionID, time.Now())
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return eris.Wrap(err, "write csv")
		}

		cmd.Printf("wrote %d leads to %s\n", len(leads), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default leadgen_leads_<sid>_<date>.csv)")
	rootCmd.AddCommand(exportCmd)
}
