package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSpacesCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List spaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spaces, err := app.client.ListSpaces(cmd.Context())
			if err != nil {
				return err
			}
			printSpaces(app.out, spaces)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME...",
		Short: "Create a space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space, err := app.client.CreateSpace(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Created space %q (%s).\n", space.Name, space.ID)
			return nil
		},
	})
	return cmd
}

func newSummaryCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summary TASK_ID",
		Short: "Ask the backend to regenerate a task's AI summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			resp, err := app.client.Summarize(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Summary requested (job %s, %s). Run \"smera notes %s\" to read it.\n",
				shortID(resp.JobID), resp.Status, taskID)
			return nil
		},
	}
}

func newUsageCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show plan usage for the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usage, err := app.client.Usage(cmd.Context())
			if err != nil {
				return err
			}
			printUsage(app.out, usage)
			return nil
		},
	}
}
