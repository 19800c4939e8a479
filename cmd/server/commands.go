package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQLite schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.db == nil {
				return errors.New("database.path is not configured")
			}
			a.logger.Info("migrations applied", map[string]any{"path": a.cfg.Database.Path})
			return nil
		},
	}
}

func enableWebhookCmd(configFile *string) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "enable-webhook",
		Short: "Re-enable the custody provider webhook config",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if id == "" {
				id = a.cfg.Custody.WebhookConfigID
			}
			if id == "" {
				return errors.New("no webhook config id given")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if err := a.custodyClient().EnableWebhookConfig(ctx, id); err != nil {
				return fmt.Errorf("enable webhook config %s: %w", id, err)
			}
			a.logger.Info("webhook config enabled", map[string]any{"webhook-config-id": id})
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "webhook config id (defaults to custody.webhook_config_id)")
	return cmd
}

func importAccountCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-custodial-account <user-id> <account-id>",
		Short: "Link an existing custody account to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			client := a.custodyClient()
			var opener accountOpener
			if !a.cfg.IsProduction() {
				opener = client
			}

			acct, err := importCustodialAccount(ctx, client, opener, a.repos.Accounts, args[0], args[1])
			if err != nil {
				return err
			}
			a.logger.Info("custodial account imported", map[string]any{
				"user-id":    acct.UserID,
				"account-id": acct.ID,
				"contact-id": acct.ContactID,
				"status":     acct.Status,
				"verified":   acct.IsVerified(),
			})
			return nil
		},
	}
	return cmd
}
