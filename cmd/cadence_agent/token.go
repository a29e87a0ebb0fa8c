package main

import (
	"fmt"

	"github.com/jonathan/outreach-cadence/internal/config"
	"github.com/jonathan/outreach-cadence/internal/server"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin API token",
	Long:  "Sign a bearer token for the admin API with JWT_SECRET. Useful for scripts and first-time setup.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", server.DefaultSubject, "Token subject (who is calling)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.JWT.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	token, expiresAt, err := server.NewJWTService(&cfg.JWT).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}
