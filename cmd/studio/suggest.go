package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <prompt>",
		Short: "Print up to three prompt suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			items := a.client.PromptSuggestions(cmd.Context(), prompt)
			if len(items) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no suggestions")
				return nil
			}
			for _, item := range items {
				fmt.Fprintln(cmd.OutOrStdout(), item)
			}
			return nil
		},
	}
}
