package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain stored sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsExportCmd())
	cmd.AddCommand(newSessionsCleanupCmd())
	cmd.AddCommand(newSessionsAnalyticsCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAppFromFlags()
			if err != nil {
				return err
			}
			defer a.close()

			metas, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(metas, func(i, j int) bool {
				return metas[i].LastActivity.After(metas[j].LastActivity)
			})
			for _, meta := range metas {
				fmt.Printf("%-36s  %3d msgs  last active %s\n",
					meta.ID, meta.MessageCount, meta.LastActivity.Format(time.RFC3339))
			}
			fmt.Printf("%d session(s)\n", len(metas))
			return nil
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAppFromFlags()
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.lifecycle.Summarize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("session:    %s\n", summary.ID)
			fmt.Printf("created:    %s\n", summary.CreatedAt.Format(time.RFC3339))
			fmt.Printf("last seen:  %s\n", summary.LastActivity.Format(time.RFC3339))
			fmt.Printf("duration:   %s\n", summary.Duration.Round(time.Second))
			fmt.Printf("messages:   %d (user %d, assistant %d)\n",
				summary.MessageCount, summary.UserMessages, summary.AssistantMessages)
			if len(summary.Context) > 0 {
				fmt.Println("context:")
				keys := make([]string, 0, len(summary.Context))
				for k := range summary.Context {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %s: %s\n", k, summary.Context[k])
				}
			}
			return nil
		},
	}
}

func newSessionsExportCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session transcript to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAppFromFlags()
			if err != nil {
				return err
			}
			defer a.close()

			dir := outDir
			if dir == "" {
				dir = a.cfg.Session.ExportDir
			}
			path, err := a.lifecycle.Export(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: configured export dir)")
	return cmd
}

func newSessionsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run the eviction sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAppFromFlags()
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.lifecycle.CleanupOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d session(s)\n", removed)
			return nil
		},
	}
}

func newSessionsAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show aggregate session statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAppFromFlags()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.lifecycle.ComputeAnalytics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("sessions:   %d\n", stats.TotalSessions)
			fmt.Printf("messages:   %d (user %d, assistant %d)\n",
				stats.TotalMessages, stats.UserMessages, stats.AssistantMessages)
			fmt.Printf("avg/sess:   %.1f\n", stats.AvgMessages)
			if stats.OldestSessionID != "" {
				fmt.Printf("oldest:     %s\n", stats.OldestSessionID)
				fmt.Printf("newest:     %s\n", stats.NewestSessionID)
			}
			if len(stats.SessionsByDate) > 0 {
				fmt.Println("by date:")
				dates := make([]string, 0, len(stats.SessionsByDate))
				for d := range stats.SessionsByDate {
					dates = append(dates, d)
				}
				sort.Strings(dates)
				for _, d := range dates {
					fmt.Printf("  %s: %d\n", d, stats.SessionsByDate[d])
				}
			}
			return nil
		},
	}
}

// buildAppFromFlags loads the configured app for maintenance commands.
func buildAppFromFlags() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg)
}
