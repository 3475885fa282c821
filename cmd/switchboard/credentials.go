package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func newCredentialsCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored platform API keys",
	}
	cmd.AddCommand(newCredentialsSetCommand(cli))
	cmd.AddCommand(newCredentialsClearCommand(cli))
	return cmd
}

func newCredentialsSetCommand(cli *CLI) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "set <platform>",
		Short: "Store an API key for a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			ctx := context.Background()
			platformID := args[0]
			if _, ok, err := container.Catalog.Platform(ctx, platformID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("unknown platform %q", platformID)
			}

			if key == "" {
				if !isTTY() {
					return fmt.Errorf("no --key given and no terminal to prompt on")
				}
				prompt := promptui.Prompt{
					Label: fmt.Sprintf("API key for %s", platformID),
					Mask:  '*',
				}
				entered, err := prompt.Run()
				if err != nil {
					return fmt.Errorf("key entry aborted: %w", err)
				}
				key = entered
			}
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("empty key")
			}

			if err := container.Gate.SetKey(ctx, platformID, key); err != nil {
				return err
			}
			fmt.Println(successText("credentials stored for " + platformID))
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (prompted interactively when omitted)")
	return cmd
}

func newCredentialsClearCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <platform>",
		Short: "Remove the stored API key for a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Gate.ClearKey(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println(successText("credentials cleared for " + args[0]))
			return nil
		},
	}
}
