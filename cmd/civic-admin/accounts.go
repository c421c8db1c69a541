package main

import (
	"fmt"

	"github.com/civicconnect/portal/internal/adapters/devauth"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newDemoAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo-accounts",
		Short: "Prepare demo account files for DEMO_AUTH_ACCOUNTS_FILE",
	}

	var cost int
	hash := &cobra.Command{
		Use:   "hash PASSWORD",
		Short: "Print a bcrypt password_hash for an accounts file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := devauth.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
			return err
		},
	}
	hash.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	var exportCost int
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the built-in demo accounts as YAML with hashed passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts := devauth.DefaultAccounts()
			for i := range accounts {
				h, err := devauth.HashPassword(accounts[i].Password, exportCost)
				if err != nil {
					return fmt.Errorf("hash %s: %w", accounts[i].Email, err)
				}
				accounts[i].Password = ""
				accounts[i].PasswordHash = h
			}
			out, err := devauth.MarshalAccounts(accounts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	export.Flags().IntVar(&exportCost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	cmd.AddCommand(hash, export)
	return cmd
}
