package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jonathan/outreach-cadence/internal/config"
	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash the admin password for ADMIN_PASSWORD_HASH",
	Long:  "Read a password from the first line of standard input and print its bcrypt hash, using BCRYPT_COST and PASSWORD_PEPPER.",
	RunE:  runHashPassword,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Password.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		return fmt.Errorf("password is empty")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := cfg.Password.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
