package main

import (
	"context"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"switchboard/internal/engine"
)

func newUseCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "use [platform] [model]",
		Short: "Select the active platform and model",
		Long: `Use persists a platform pick (pinned to --tab when given, and as the
interface-wide default) and optionally a model pick, then re-resolves.
Without arguments it opens an interactive picker.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cli.container()
			if err != nil {
				return err
			}
			defer container.Close()

			session, err := cli.session()
			if err != nil {
				return err
			}

			ctx := context.Background()
			platformID := ""
			modelID := ""
			if len(args) > 0 {
				platformID = args[0]
			}
			if len(args) > 1 {
				modelID = args[1]
			}

			if platformID == "" {
				if !isTTY() {
					return fmt.Errorf("no platform given and no terminal for the picker")
				}
				platformID, err = pickPlatform(ctx, container)
				if err != nil {
					return err
				}
			}
			if _, ok, err := container.Catalog.Platform(ctx, platformID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("unknown platform %q", platformID)
			}

			gen, err := container.Coordinator.SelectPlatform(ctx, session, platformID)
			if err != nil {
				return err
			}

			if modelID == "" && session.Interface.ExposesModelChoice() && isTTY() {
				modelID, err = pickModel(ctx, container, platformID)
				if err != nil {
					return err
				}
			}
			if modelID != "" {
				gen, err = container.Coordinator.SelectModel(ctx, session, platformID, modelID)
				if err != nil {
					return err
				}
			}

			view, err := waitForCommit(container.Coordinator, gen, 10*time.Second)
			if err != nil {
				return err
			}
			printCommittedView(view)
			return nil
		},
	}
}

func pickPlatform(ctx context.Context, container *Container) (string, error) {
	platforms, err := container.Catalog.Platforms(ctx)
	if err != nil {
		return "", err
	}
	items := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		label := fmt.Sprintf("%s (%s)", platform.Name, platform.ID)
		if platform.RequiresCredentials() && !container.Gate.Check(ctx, platform.ID) {
			label += " - no credentials"
		}
		items = append(items, label)
	}
	prompt := promptui.Select{
		Label: "Platform",
		Items: items,
		Size:  10,
	}
	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("platform selection aborted: %w", err)
	}
	return platforms[index].ID, nil
}

func pickModel(ctx context.Context, container *Container, platformID string) (string, error) {
	resp := container.Models.Request(ctx, platformID)
	if !resp.Success || len(resp.Models) == 0 {
		// Nothing listable; the resolver falls back to the platform default.
		fmt.Println(warnText("no live model list, keeping the platform default"))
		return "", nil
	}
	prompt := promptui.Select{
		Label: "Model",
		Items: resp.Models,
		Size:  10,
	}
	_, model, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("model selection aborted: %w", err)
	}
	return model, nil
}

// waitForCommit subscribes to the coordinator until the pass with the given
// generation commits, a newer pass commits past it, or its failure surfaces.
func waitForCommit(coordinator *engine.Coordinator, gen uint64, timeout time.Duration) (engine.View, error) {
	views, cancel := coordinator.Subscribe()
	defer cancel()
	deadline := time.After(timeout)
	for {
		select {
		case view, ok := <-views:
			if !ok {
				return engine.View{}, fmt.Errorf("coordinator closed")
			}
			if view.Generation >= gen {
				return view, nil
			}
			if view.Err != nil && !view.Loading {
				return view, view.Err
			}
		case <-deadline:
			return engine.View{}, fmt.Errorf("timed out waiting for the resolution pass")
		}
	}
}

func printCommittedView(view engine.View) {
	if view.SelectedPlatform == "" {
		fmt.Println(warnText("no valid platform preference resolved (check credentials)"))
		return
	}
	fmt.Printf("%s platform %s %s\n",
		successText("selected"), bold(view.SelectedPlatform), gray("("+string(view.PlatformSource)+")"))
	if view.SelectedModel != "" {
		fmt.Printf("%s model %s %s\n",
			successText("selected"), bold(view.SelectedModel), gray("("+string(view.ModelSource)+")"))
	}
	if view.Parameters != nil {
		p := view.Parameters
		fmt.Printf("  %s=%d contextWindow=%d", p.TokenParameter, p.MaxTokens, p.ContextWindow)
		if p.Temperature != nil {
			fmt.Printf(" temperature=%g", *p.Temperature)
		}
		if p.TopP != nil {
			fmt.Printf(" topP=%g", *p.TopP)
		}
		if p.ThinkingBudget != nil {
			fmt.Printf(" thinkingBudget=%d", *p.ThinkingBudget)
		}
		if p.ReasoningEffort != "" {
			fmt.Printf(" reasoningEffort=%s", p.ReasoningEffort)
		}
		fmt.Println()
	}
}
