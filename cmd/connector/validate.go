package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/evgeny-myasishchev/statements-connector/pkg/feeds"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate feed definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return injector(func(store feeds.Store) error {
				results, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				invalid := 0
				for _, result := range results {
					switch {
					case !result.Valid():
						invalid++
						fmt.Fprintf(out, "INVALID  %v: %v\n", result.Name, strings.Join(result.Reasons, "; "))
					case result.Disabled:
						fmt.Fprintf(out, "DISABLED %v\n", result.Name)
					default:
						fmt.Fprintf(out, "OK       %v\n", result.Name)
					}
				}
				if invalid > 0 {
					return errors.Errorf("%v of %v feeds are invalid", invalid, len(results))
				}
				return nil
			})
		},
	}
}
