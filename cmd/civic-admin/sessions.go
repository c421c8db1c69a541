package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/spf13/cobra"
)

const defaultSessionListLimit = 100

// withSessions opens the session store for the duration of fn.
func (a *app) withSessions(cmd *cobra.Command, fn func(store sessionAdmin) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	store, closeFn, err := a.openSessions(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn == nil {
			return
		}
		if closeErr := closeFn(); closeErr != nil {
			a.logger.Warn("session store close failed", "error", closeErr)
		}
	}()
	return fn(store)
}

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, inspect and revoke signed-in sessions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSessions(cmd, func(store sessionAdmin) error {
				return listSessions(cmd, store, limit)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", defaultSessionListLimit, "maximum sessions to list (0 for all)")

	inspect := &cobra.Command{
		Use:   "inspect SESSION_ID",
		Short: "Print one session as JSON, without its access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSessions(cmd, func(store sessionAdmin) error {
				sess, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return sessionLookupError(args[0], err)
				}
				sess.AccessToken = ""
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sess)
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke SESSION_ID...",
		Short: "Delete sessions so their cookies stop working",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSessions(cmd, func(store sessionAdmin) error {
				for _, id := range args {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return fmt.Errorf("revoke %s: %w", id, err)
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, inspect, revoke)
	return cmd
}

func listSessions(cmd *cobra.Command, store sessionAdmin, limit int) error {
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	ids, err := store.Scan(cmd.Context(), limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SESSION\tUSER\tEMAIL\tROLE\tEXPIRES"); err != nil {
		return err
	}
	for _, id := range ids {
		sess, getErr := store.Get(cmd.Context(), id)
		if getErr != nil {
			// Expired between scan and read, or unreadable.
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			sess.ID, sess.UserID, sess.Email, sess.Role, sess.ExpiresAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func sessionLookupError(id string, err error) error {
	switch {
	case apperrors.IsNotFound(err):
		return fmt.Errorf("session %s not found", id)
	case errors.Is(err, domainauth.ErrCorruptSession):
		return fmt.Errorf("session %s is unreadable: %w", id, err)
	default:
		return err
	}
}
