package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlatformsCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms and credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			ctx := context.Background()
			platforms, err := container.Catalog.Platforms(ctx)
			if err != nil {
				return err
			}

			for _, platform := range platforms {
				glyph := green("●")
				note := "ready"
				if platform.RequiresCredentials() && !container.Gate.Check(ctx, platform.ID) {
					glyph = red("○")
					note = "no credentials"
				}
				fmt.Printf("%s %s %s  %s\n",
					glyph, bold(platform.Name), gray("("+platform.ID+")"), gray(note))
				if platform.DefaultModel != "" {
					fmt.Printf("   default model: %s\n", cyan(platform.DefaultModel))
				}
			}
			return nil
		},
	}
}

func newModelsCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "models <platform>",
		Short: "List the live model ids for a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			platformID := args[0]
			ctx := context.Background()
			platform, ok, err := container.Catalog.Platform(ctx, platformID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unknown platform %q", platformID)
			}

			resp := container.Models.Request(ctx, platformID)
			if !resp.Success {
				fmt.Println(warnText("live listing unavailable, nothing to show"))
				if resp.Err != "" {
					fmt.Println(gray("  " + resp.Err))
				}
				return nil
			}
			for _, model := range resp.Models {
				marker := " "
				if model == platform.DefaultModel {
					marker = cyan("*")
				}
				fmt.Printf("%s %s\n", marker, model)
			}
			if platform.DefaultModel != "" {
				fmt.Println(gray("* platform default"))
			}
			return nil
		},
	}
}
