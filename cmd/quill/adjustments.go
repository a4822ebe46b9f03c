package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/service"
)

var currencyPrinter = message.NewPrinter(language.English)

func adjustmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "adjustments",
		Aliases: []string{"adj"},
		Short:   "Inspect and review identified adjustments",
	}
	cmd.AddCommand(adjustmentsListCmd())
	cmd.AddCommand(adjustmentsShowCmd())
	cmd.AddCommand(adjustmentsApproveCmd())
	cmd.AddCommand(adjustmentsRejectCmd())
	cmd.AddCommand(adjustmentsAutoApproveCmd())
	cmd.AddCommand(adjustmentsSummaryCmd())
	return cmd
}

func adjustmentsListCmd() *cobra.Command {
	var (
		projectID int64
		status    string
		category  string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List adjustments for a project",
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

			filter := service.AdjustmentFilter{ProjectID: &projectID, Limit: limit}
			if status != "" {
				s := model.ReviewStatus(status)
				filter.Status = &s
			}
			if category != "" {
				c := model.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category: %s", category)
				}
				filter.Category = &c
			}

			adjustments, err := store.GetAdjustments(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list adjustments: %w", err)
			}

			if len(adjustments) == 0 {
				fmt.Println(cli.FormatInfo("No adjustments match."))
				return nil
			}

			rows := make([][]string, 0, len(adjustments))
			for _, adj := range adjustments {
				material := ""
				if adj.IsMaterial {
					material = "yes"
				}
				rows = append(rows, []string{
					strconv.FormatInt(adj.ID, 10),
					adj.Title,
					string(adj.Category),
					currencyPrinter.Sprintf("$%.2f", adj.Amount),
					fmt.Sprintf("%.0f%%", adj.Confidence*100),
					material,
					string(adj.Status),
				})
			}

			fmt.Println(renderTable(
				[]string{"ID", "Title", "Category", "Amount", "Conf", "Material", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by review status (pending, accepted, rejected, modified)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to show")
	return cmd
}

func adjustmentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one adjustment in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid adjustment ID: %s", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			adj, err := store.GetAdjustmentByID(ctx, id)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(adj.Title))
			fmt.Printf("Category:    %s\n", adj.Category)
			fmt.Printf("Amount:      %s\n", currencyPrinter.Sprintf("$%.2f", adj.Amount))
			fmt.Printf("Confidence:  %.0f%%\n", adj.Confidence*100)
			fmt.Printf("Rule:        %s\n", adj.RuleApplied)
			fmt.Printf("Material:    %v (%s)\n", adj.IsMaterial, adj.MaterialityReason)
			if adj.DebitAccount != "" || adj.CreditAccount != "" {
				fmt.Printf("Entry:       Dr %s / Cr %s\n", adj.DebitAccount, adj.CreditAccount)
			}
			fmt.Printf("Status:      %s\n", adj.Status)
			if adj.ReviewerNotes != "" {
				fmt.Printf("Notes:       %s\n", adj.ReviewerNotes)
			}
			if adj.Narrative != "" {
				fmt.Println()
				fmt.Println(cli.SubtitleStyle.Render("Narrative"))
				fmt.Println(adj.Narrative)
			}
			if adj.Reasoning != "" {
				fmt.Println()
				fmt.Println(cli.SubtitleStyle.Render("Reasoning"))
				fmt.Println(adj.Reasoning)
			}
			return nil
		},
	}
}

func adjustmentsApproveCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Accept an adjustment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewOne(cmd, args[0], model.StatusAccepted, notes)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes")
	return cmd
}

func adjustmentsRejectCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject an adjustment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewOne(cmd, args[0], model.StatusRejected, notes)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes")
	return cmd
}

func reviewOne(cmd *cobra.Command, rawID string, status model.ReviewStatus, notes string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid adjustment ID: %s", rawID)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.ReviewAdjustment(ctx, id, status, notes); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Adjustment %d marked %s", id, status)))
	return nil
}

func adjustmentsAutoApproveCmd() *cobra.Command {
	var (
		projectID  int64
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "auto-approve",
		Short: "Accept all pending high-confidence adjustments",
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

			approved, err := store.AutoApproveHighConfidence(ctx, projectID, confidence)
			if err != nil {
				return fmt.Errorf("auto-approve failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Auto-approved %d adjustment(s) at confidence >= %.0f%%",
				approved, confidence*100)))
			return store.UpdateProjectMetrics(ctx, projectID)
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.9, "minimum confidence to auto-approve")
	return cmd
}

func adjustmentsSummaryCmd() *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate review metrics for a project",
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

			summary, err := store.GetAdjustmentSummary(ctx, projectID)
			if err != nil {
				return fmt.Errorf("failed to build summary: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Adjustment Summary"))
			fmt.Printf("Total:       %d\n", summary.TotalAdjustments)
			fmt.Printf("Accepted:    %d\n", summary.AcceptedAdjustments)
			fmt.Printf("Rejected:    %d\n", summary.RejectedAdjustments)
			fmt.Printf("Pending:     %d\n", summary.PendingAdjustments)
			fmt.Printf("Material:    %d\n", summary.MaterialAdjustments)
			fmt.Printf("Accepted $:  %s\n", currencyPrinter.Sprintf("$%.2f", summary.AcceptedAmount))
			fmt.Printf("Avg conf:    %.0f%%\n", summary.AverageConfidence*100)

			if len(summary.ByCategory) > 0 {
				categories := make([]model.Category, 0, len(summary.ByCategory))
				for cat := range summary.ByCategory {
					categories = append(categories, cat)
				}
				sort.Slice(categories, func(i, j int) bool {
					return summary.ByCategory[categories[i]].Count > summary.ByCategory[categories[j]].Count
				})

				rows := make([][]string, 0, len(categories))
				for _, cat := range categories {
					breakdown := summary.ByCategory[cat]
					rows = append(rows, []string{
						string(cat),
						strconv.Itoa(breakdown.Count),
						currencyPrinter.Sprintf("$%.2f", breakdown.Amount),
					})
				}

				fmt.Println()
				fmt.Println(renderTable(
					[]string{"Category", "Count", "Amount"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID")
	return cmd
}
