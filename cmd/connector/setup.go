package main

import (
	"github.com/spf13/cobra"

	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
)

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create schema of the destination store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return injector(func(store destination.Store) error {
				return store.Setup(cmd.Context())
			})
		},
	}
}
