package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"switchboard/internal/params"
	"switchboard/internal/tokens"
)

func newResolveCommand(cli *CLI) *cobra.Command {
	var historyPath string

	cmd := &cobra.Command{
		Use:   "resolve <platform> <model>",
		Short: "Print the resolved API parameters for one call",
		Long: `Resolve merges the model's capability defaults with any stored overrides
for the selected mode and prints the final parameter set as JSON. With
--history, the conversation is passed through and its estimated token
footprint is annotated against the model's context window.`,
		Args: cobra.ExactArgs(2),
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

			var history []params.Message
			if historyPath != "" {
				history, err = readHistory(historyPath)
				if err != nil {
					return err
				}
			}

			resolved, err := container.Resolver.Resolve(context.Background(), args[0], args[1], params.Options{
				TabID:               session.TabID,
				Interface:           session.Interface,
				ConversationHistory: history,
				UseThinkingMode:     session.UseThinkingMode,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resolved, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if len(history) > 0 {
				printHistoryFit(history, resolved)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&historyPath, "history", "", "JSON file with [{role, content}] conversation history")
	return cmd
}

func readHistory(path string) ([]params.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var history []params.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return history, nil
}

// printHistoryFit annotates the estimated history size against the context
// window. Advisory only; the counts are estimates.
func printHistoryFit(history []params.Message, resolved params.Resolved) {
	var counter tokens.Counter
	total := 0
	for _, message := range history {
		total += counter.Count(message.Content)
	}
	fit := tokens.Fit{Tokens: total, ContextWindow: resolved.ContextWindow}

	kind := "estimated"
	if counter.Exact() {
		kind = "tokenized"
	}
	line := fmt.Sprintf("history: %d tokens (%s), %.0f%% of %d-token window",
		total, kind, fit.Ratio()*100, resolved.ContextWindow)
	if fit.Fits(resolved.MaxTokens) {
		fmt.Println(gray(line))
	} else {
		fmt.Println(warnText(line + " - output budget may not fit"))
	}
}
