package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) loginCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the Helix server",
		Long: `Log in to the Helix server with form-based credentials.

The username comes from --username, HELIX_USERNAME or the config file; the
password is only ever read from HELIX_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				username = a.cfg.Username
			}
			if username == "" {
				return fmt.Errorf("no username given (use --username or HELIX_USERNAME)")
			}
			password := os.Getenv("HELIX_PASSWORD")
			if password == "" {
				return fmt.Errorf("HELIX_PASSWORD is not set")
			}

			mgr, err := a.authManager()
			if err != nil {
				return err
			}
			result, err := mgr.LogIn(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if !result.IsLoggedIn {
				return fmt.Errorf("login failed for %s", result.UserName)
			}
			fmt.Printf("Logged in as %s\n", result.UserName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user to log in as")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the server-side session",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.authManager()
			if err != nil {
				return err
			}
			if _, err := mgr.LogOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check whether a session is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.authManager()
			if err != nil {
				return err
			}
			state, err := mgr.CheckSession(cmd.Context())
			if err != nil {
				return err
			}
			if state.IsLoggedIn {
				fmt.Println("Session active")
			} else {
				fmt.Println("Not logged in")
			}
			return nil
		},
	}
}
