package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/model"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage engagement projects",
	}
	cmd.AddCommand(projectsCreateCmd())
	cmd.AddCommand(projectsListCmd())
	return cmd
}

func projectsCreateCmd() *cobra.Command {
	var (
		client     string
		threshold  float64
		percentage float64
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new engagement project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			project := &model.Project{
				Name:                  args[0],
				Client:                client,
				MaterialityThreshold:  threshold,
				MaterialityPercentage: percentage,
			}

			id, err := store.CreateProject(ctx, project)
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created project %d: %s", id, project.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().Float64Var(&threshold, "threshold", 1000, "absolute materiality threshold in dollars")
	cmd.Flags().Float64Var(&percentage, "percentage", 0.05, "fractional materiality threshold (0-1)")
	return cmd
}

func projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			projects, err := store.ListProjects(ctx)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			if len(projects) == 0 {
				fmt.Println(cli.FormatInfo("No projects yet. Create one with 'quill projects create'."))
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.Name,
					p.Client,
					fmt.Sprintf("$%.2f", p.MaterialityThreshold),
					fmt.Sprintf("%d/%d", p.ProcessedDocuments, p.TotalDocuments),
					fmt.Sprintf("%d/%d", p.ReviewedAdjustments, p.TotalAdjustments),
				})
			}

			fmt.Println(renderTable(
				[]string{"ID", "Name", "Client", "Threshold", "Documents", "Reviewed"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
