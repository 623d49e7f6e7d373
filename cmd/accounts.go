package cmd

import (
	"context"
	"fmt"
	"strconv"

	"feedsync/feature/account/models"
	"feedsync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for accounts add
	addName     string
	addType     string
	addUsername string
	addPassword string
)

// accountsCmd is the parent command for account management.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage provider accounts",
}

// accountsListCmd lists the configured accounts.
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, l, err := buildSyncService()
		if err != nil {
			return err
		}

		accounts, err := service.Accounts().ListAccounts(context.Background())
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			l.Info("No accounts configured")
			return nil
		}

		for _, acct := range accounts {
			l.Info("Account",
				zap.Int("id", acct.ID),
				zap.String("name", acct.Name),
				zap.String("type", acct.Type),
				zap.String("cursor", acct.LastSyncedAt),
			)
		}
		return nil
	},
}

// accountsAddCmd stores a new account after checking its credentials.
var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider account",
	Long: `Stores a new provider account. The credentials are checked against
the remote before the account is saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		service, l, err := buildSyncService()
		if err != nil {
			return err
		}

		creds := models.Credentials{Username: addUsername, Password: addPassword}
		acct, err := service.Accounts().CreateAccount(ctx, addName, addType, creds)
		if err != nil {
			return err
		}

		provider, err := service.ProviderFor(acct.Type)
		if err != nil {
			return err
		}

		ok, err := provider.ValidCredentials(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("credential check failed: %w", err)
		}
		if !ok {
			// Keep the store clean when the remote rejects the credentials.
			if delErr := service.Accounts().DeleteAccount(ctx, acct.ID); delErr != nil {
				l.Warn("Failed to remove rejected account", zap.Error(delErr))
			}
			return fmt.Errorf("provider rejected the credentials for %s", addUsername)
		}

		l.Info("Account added", zap.Int("id", acct.ID), zap.String("name", acct.Name))
		return nil
	},
}

// accountsCheckCmd verifies an account's stored credentials.
var accountsCheckCmd = &cobra.Command{
	Use:   "check [account-id]",
	Short: "Verify an account's credentials against the provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		service, l, err := buildSyncService()
		if err != nil {
			return err
		}

		acct, err := resolveAccount(ctx, service, args)
		if err != nil {
			return err
		}

		provider, err := service.ProviderFor(acct.Type)
		if err != nil {
			return err
		}

		ok, err := provider.ValidCredentials(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("credential check failed: %w", err)
		}
		if !ok {
			return fmt.Errorf("provider rejected the credentials for account %d", acct.ID)
		}

		l.Info("Credentials accepted", zap.Int("id", acct.ID))
		return nil
	},
}

func init() {
	accountsAddCmd.Flags().StringVar(&addName, "name", "", "Display name for the account")
	accountsAddCmd.Flags().StringVar(&addType, "type", models.TypeFeedbin, "Provider type")
	accountsAddCmd.Flags().StringVar(&addUsername, "username", "", "Provider username")
	accountsAddCmd.Flags().StringVar(&addPassword, "password", "", "Provider password")
	_ = accountsAddCmd.MarkFlagRequired("username")
	_ = accountsAddCmd.MarkFlagRequired("password")

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsCheckCmd)
	RootCmd.AddCommand(accountsCmd)
}

// resolveAccount picks the account named by the positional arg, falling back
// to the most recently created one.
func resolveAccount(ctx context.Context, service *sync.Service, args []string) (*models.Account, error) {
	if len(args) == 0 {
		return service.Accounts().GetCurrentAccount(ctx)
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("account id must be an integer: %q", args[0])
	}
	return service.Accounts().GetAccountByID(ctx, id)
}
