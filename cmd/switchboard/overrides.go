package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"switchboard/internal/prefs"
)

func newOverridesCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage stored parameter overrides",
		Long: `Overrides are keyed by (platform, model, mode) where mode is base or
thinking. Unset fields fall back to catalog and platform defaults at
resolve time; capability rules always win over stored values.`,
	}
	cmd.AddCommand(newOverridesShowCommand(cli))
	cmd.AddCommand(newOverridesSetCommand(cli))
	cmd.AddCommand(newOverridesClearCommand(cli))
	return cmd
}

func parseOverrideArgs(args []string) (platform, model string, mode prefs.Mode, err error) {
	mode, err = prefs.ParseMode(args[2])
	if err != nil {
		return "", "", prefs.ModeBase, err
	}
	return args[0], args[1], mode, nil
}

func newOverridesShowCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "show <platform> <model> <mode>",
		Short: "Show the stored override set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, model, mode, err := parseOverrideArgs(args)
			if err != nil {
				return err
			}
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			override, found, err := container.Prefs.Override(context.Background(), platform, model, mode)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println(gray("no override stored"))
				return nil
			}
			out, err := json.MarshalIndent(override, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newOverridesSetCommand(cli *CLI) *cobra.Command {
	var (
		maxTokens          int
		temperature        float64
		topP               float64
		includeTemperature bool
		includeTopP        bool
		systemPrompt       string
		thinkingBudget     int
		reasoningEffort    string
	)

	cmd := &cobra.Command{
		Use:   "set <platform> <model> <mode>",
		Short: "Set override fields; only the flags you pass are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("expects <platform> <model> <mode>")
			}
			platform, model, mode, err := parseOverrideArgs(args)
			if err != nil {
				return err
			}
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			ctx := context.Background()
			override, _, err := container.Prefs.Override(ctx, platform, model, mode)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("max-tokens") {
				override.MaxTokens = &maxTokens
			}
			if flags.Changed("temperature") {
				override.Temperature = &temperature
			}
			if flags.Changed("top-p") {
				override.TopP = &topP
			}
			if flags.Changed("include-temperature") {
				override.IncludeTemperature = &includeTemperature
			}
			if flags.Changed("include-top-p") {
				override.IncludeTopP = &includeTopP
			}
			if flags.Changed("system-prompt") {
				override.SystemPrompt = &systemPrompt
			}
			if flags.Changed("thinking-budget") {
				override.ThinkingBudget = &thinkingBudget
			}
			if flags.Changed("reasoning-effort") {
				override.ReasoningEffort = &reasoningEffort
			}
			if override.IsZero() {
				return fmt.Errorf("no override flags given")
			}

			if err := container.Prefs.SetOverride(ctx, platform, model, mode, override); err != nil {
				return err
			}
			fmt.Println(successText(fmt.Sprintf("override stored for %s/%s (%s)", platform, model, mode)))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Output token limit")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "Nucleus sampling mass")
	cmd.Flags().BoolVar(&includeTemperature, "include-temperature", true, "Send temperature at all")
	cmd.Flags().BoolVar(&includeTopP, "include-top-p", false, "Send topP at all")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt text")
	cmd.Flags().IntVar(&thinkingBudget, "thinking-budget", 0, "Thinking token budget")
	cmd.Flags().StringVar(&reasoningEffort, "reasoning-effort", "", "Reasoning effort level")
	return cmd
}

func newOverridesClearCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <platform> <model> <mode>",
		Short: "Remove the stored override set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, model, mode, err := parseOverrideArgs(args)
			if err != nil {
				return err
			}
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Prefs.ClearOverride(context.Background(), platform, model, mode); err != nil {
				return err
			}
			fmt.Println(successText(fmt.Sprintf("override cleared for %s/%s (%s)", platform, model, mode)))
			return nil
		},
	}
}
