package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evgeny-myasishchev/statements-connector/pkg/feeds"
	"github.com/evgeny-myasishchev/statements-connector/pkg/ingest"
)

func windowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "window",
		Short: "Show windows that the next run will fetch. Nothing is fetched",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return injector(func(store feeds.Store, cycle *ingest.Cycle) error {
				results, err := store.Load(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, feed := range feeds.Active(ctx, results) {
					window, err := cycle.Window(ctx, feed)
					if err != nil {
						fmt.Fprintf(out, "%v\terror: %v\n", feed.Name, err)
						continue
					}
					status := "pending"
					if window.Empty() {
						status = "empty"
					}
					fmt.Fprintf(out, "%v\t%v\t%v\t%v\n",
						feed.Name,
						window.From.Format(time.RFC3339),
						window.To.Format(time.RFC3339),
						status,
					)
				}
				return nil
			})
		},
	}
}
