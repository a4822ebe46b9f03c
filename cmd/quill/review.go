package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/tui"
)

func reviewCmd() *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Interactively review pending adjustments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if projectID == 0 {
				return fmt.Errorf("--project is required")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			reviewed, err := tui.Run(ctx, store, projectID)
			if err != nil {
				return err
			}

			if reviewed == 0 {
				fmt.Println(cli.FormatInfo("Nothing reviewed."))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Reviewed %d adjustment(s)", reviewed)))
			}
			return store.UpdateProjectMetrics(ctx, projectID)
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID")
	return cmd
}
