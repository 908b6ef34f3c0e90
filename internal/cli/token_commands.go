package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/dosekeeper/internal/api"
	"github.com/terraincognita07/dosekeeper/internal/security"
)

func newTokenCommand(options *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	command := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := options.loadConfig()
			if err != nil {
				return err
			}
			if cfg.UsesDefaultSecret() {
				return errInsecureSecret
			}

			token, err := api.IssueToken(cfg.SecretKey, subject, ttl, time.Now())
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	command.Flags().StringVar(&subject, "subject", "owner", "token subject")
	command.Flags().DurationVar(&ttl, "ttl", api.DefaultTokenTTL, "token lifetime")
	return command
}

func newSecretCommand() *cobra.Command {
	var length int

	command := &cobra.Command{
		Use:   "secret",
		Short: "Print a random value suitable for SECRET_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := security.NewSecretKey(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	command.Flags().IntVar(&length, "length", security.DefaultSecretLength, "number of characters")
	return command
}
