/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/server"
	"github.com/garuda-portal/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	adminCreateUsername string
	adminCreateEmail    string
	adminCreateFullName string
	adminCreatePassword string
	adminCreateRole     string
)

// adminCmd represents the admin command.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative maintenance commands",
}

// adminCreateCmd bootstraps the first privileged account. Registration
// over HTTP always yields role User, so the initial SuperAdmin has to
// come from here.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a privileged account directly in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		role, err := types.ParseRole(adminCreateRole)
		if err != nil {
			return err
		}
		username := strings.TrimSpace(adminCreateUsername)
		email := strings.ToLower(strings.TrimSpace(adminCreateEmail))
		fullName := strings.TrimSpace(adminCreateFullName)
		if username == "" || email == "" || fullName == "" || adminCreatePassword == "" {
			return errors.New("username, email, full-name and password are required")
		}

		userStore, err := server.OpenUserStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = userStore.Close(cmd.Context())
		}()

		cost := cfg.Auth.BcryptCost
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(adminCreatePassword), cost)
		if err != nil {
			return err
		}

		user, err := userStore.Create(cmd.Context(), types.User{
			Username:     username,
			Email:        email,
			FullName:     fullName,
			Role:         role,
			IsActive:     true,
			PasswordHash: string(hash),
		})
		if err != nil {
			return err
		}

		fmt.Printf("created %s account %q (id %d)\n", user.Role, user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminCreateUsername, "username", "", "account username")
	adminCreateCmd.Flags().StringVar(&adminCreateEmail, "email", "", "account email")
	adminCreateCmd.Flags().StringVar(&adminCreateFullName, "full-name", "", "account full name")
	adminCreateCmd.Flags().StringVar(&adminCreatePassword, "password", "", "account password")
	adminCreateCmd.Flags().StringVar(&adminCreateRole, "role", string(types.RoleSuperAdmin), "account role")
}
