package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helixdata/helix-go/pkg/models"
)

func (a *app) contextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage compute and launcher contexts",
	}
	cmd.AddCommand(
		a.contextListCommand(),
		a.contextCreateCommand(),
		a.contextEditCommand(),
		a.contextDeleteCommand(),
		a.contextShowCommand(),
	)
	return cmd
}

func (a *app) contextListCommand() *cobra.Command {
	var launcher bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compute contexts (or launcher contexts with --launcher)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.contextManager()
			if err != nil {
				return err
			}

			var items []models.ContextSummary
			if launcher {
				items, err = mgr.ListLauncherContexts(cmd.Context(), a.token)
			} else {
				items, err = mgr.ListComputeContexts(cmd.Context(), a.token)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tCREATED BY\tVERSION")
			for _, c := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Name, c.ID, c.CreatedBy, c.Version)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&launcher, "launcher", false, "list launcher contexts instead of compute contexts")
	return cmd
}

func (a *app) contextCreateCommand() *cobra.Command {
	var (
		launchContext   string
		sharedAccountID string
		autoExecLines   []string
		authorizedUsers []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a compute context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.contextManager()
			if err != nil {
				return err
			}

			if launchContext == "" {
				launchContext = a.cfg.DefaultLauncher
			}

			created, err := mgr.CreateComputeContext(cmd.Context(), models.CreateComputeContextInput{
				Name:              args[0],
				LaunchContextName: launchContext,
				SharedAccountID:   sharedAccountID,
				AutoExecLines:     autoExecLines,
				AuthorizedUsers:   authorizedUsers,
			}, a.token)
			if err != nil {
				return err
			}
			fmt.Printf("Created compute context %q (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&launchContext, "launch-context", "", "launcher context to reference (created on demand if absent)")
	cmd.Flags().StringVar(&sharedAccountID, "run-as", "", "shared account to run server processes as")
	cmd.Flags().StringArrayVar(&autoExecLines, "autoexec", nil, "autoexec line to attach (repeatable)")
	cmd.Flags().StringArrayVar(&authorizedUsers, "authorize-user", nil, "authorized user (repeatable; all authenticated users when omitted)")
	return cmd
}

func (a *app) contextEditCommand() *cobra.Command {
	var (
		newName     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Edit a compute context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.contextManager()
			if err != nil {
				return err
			}

			edited, err := mgr.EditComputeContext(cmd.Context(), args[0], models.ContextEdit{
				Name:        newName,
				Description: description,
			}, a.token)
			if err != nil {
				return err
			}
			fmt.Printf("Edited compute context %q (version %d)\n", edited.Name, edited.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&newName, "rename", "", "new context name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func (a *app) contextDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a compute context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.contextManager()
			if err != nil {
				return err
			}
			if _, err := mgr.DeleteComputeContext(cmd.Context(), args[0], a.token); err != nil {
				return err
			}
			fmt.Printf("Deleted compute context %q\n", args[0])
			return nil
		},
	}
}

func (a *app) contextShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the full definition of a compute context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.contextManager()
			if err != nil {
				return err
			}
			c, err := mgr.GetComputeContextByName(cmd.Context(), args[0], a.token)
			if err != nil {
				return err
			}
			full, err := mgr.GetComputeContextByID(cmd.Context(), c.ID, a.token)
			if err != nil {
				return err
			}

			fmt.Printf("Name:        %s\n", full.Name)
			fmt.Printf("ID:          %s\n", full.ID)
			fmt.Printf("Created by:  %s\n", full.CreatedBy)
			fmt.Printf("Version:     %d\n", full.Version)
			if full.LaunchContext != nil {
				fmt.Printf("Launcher:    %s\n", full.LaunchContext.ContextName)
			}
			for k, v := range full.Attributes {
				fmt.Printf("Attribute:   %s=%v\n", k, v)
			}
			return nil
		},
	}
}
