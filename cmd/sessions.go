package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/internal/store"
)

var (
	sessionsUser   string
	sessionsStatus string
	sessionsLimit  int
	sessionsJSON   bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List pipeline sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		sessions, err := st.ListSessions(ctx, store.SessionFilter{
			UserID: sessionsUser,
			Status: model.SessionStatus(sessionsStatus),
			Limit:  sessionsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list sessions")
		}

		if sessionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		if len(sessions) == 0 {
			cmd.Println("no sessions found")
			return nil
		}
		for _, s := range sessions {
			cmd.Printf("%s  %-10s  %4d results  %s  %q\n",
				s.ID, s.Status, s.ResultCount,
				s.CreatedAt.Format("2006-01-02 15:04"),
				s.RawQuery,
			)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsUser, "user", "", "filter by user ID")
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "filter by status")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "print sessions as JSON")
	rootCmd.AddCommand(sessionsCmd)
}
