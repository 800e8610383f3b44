package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question in natural language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			if resp.Outcome == "fallback" {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: the question could not be translated; showing the default rankings")
			}
			return printJSON(cmd.OutOrStdout(), resp.Result)
		},
	}
}

func newRefreshCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Trigger an insight rebuild on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "refresh completed")
			return nil
		},
	}
}
