package main

import (
	"encoding/json"
	"strings"

	"github.com/civicconnect/portal/internal/adapters/civicapi"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with auth API access tokens",
	}

	var (
		secret   string
		noVerify bool
	)
	inspect := &cobra.Command{
		Use:   "inspect TOKEN",
		Short: "Decode an access token and verify it with AUTH_API_TOKEN_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !noVerify && secret == "" {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				secret = cfg.Auth.API.TokenSecret
			}
			if noVerify {
				secret = ""
			}

			claims, err := civicapi.NewTokenInspector(secret).Inspect(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
	inspect.Flags().StringVar(&secret, "secret", "", "HS256 secret (defaults to AUTH_API_TOKEN_SECRET)")
	inspect.Flags().BoolVar(&noVerify, "no-verify", false, "decode without checking signature or expiry")

	cmd.AddCommand(inspect)
	return cmd
}
