package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soltixdb/soltix-transform/internal/grpc"
	"github.com/soltixdb/soltix-transform/internal/transform"
)

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered transform functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := transform.Names()

			if server, _ := cmd.Flags().GetString("server"); server != "" {
				client, err := grpc.Dial(server)
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()

				if names, err = client.Functions(cmd.Context()); err != nil {
					return fmt.Errorf("failed to list functions on %s: %w", server, err)
				}
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
