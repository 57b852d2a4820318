package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school-controlplane/internal/auth"
	"school-controlplane/internal/model"
	"school-controlplane/internal/storage"
)

func newOperatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(newOperatorCreateCmd())
	return cmd
}

func newOperatorCreateCmd() *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision an operator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := storage.NewStorage(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			op := &model.Operator{
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
				Name:         name,
				Role:         role,
				IsActive:     true,
			}
			if err := db.CreateOperator(cmd.Context(), op); err != nil {
				return err
			}
			log.Info("operator created", zap.String("operator_id", op.ID.String()), zap.String("email", op.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "super_admin", "operator role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
