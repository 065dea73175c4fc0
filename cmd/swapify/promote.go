package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

func promoteCmd(a *app) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.Role(strings.ToLower(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q, use admin or user", role)
			}

			pool, err := db.Connect(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := db.NewStore(pool).SetUserRole(ctx, email, r); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return fmt.Errorf("no user with email %q", email)
				}
				return err
			}

			a.log.Info("user role updated", zap.String("email", email), zap.String("role", string(r)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "Role to set (admin or user)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
