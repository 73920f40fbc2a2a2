package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := setup()
			cfg.RequireAuth()

			tok, err := auth.NewIssuer(cfg.AuthSecret, cfg.AuthIssuer, cfg.AuthAudience, cfg.AuthTokenTTL).Issue(owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "user", "u", "", "Owner id placed in the token subject (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
