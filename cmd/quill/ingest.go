package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/model"
)

func ingestCmd() *cobra.Command {
	var (
		projectID int64
		docType   string
	)

	cmd := &cobra.Command{
		Use:   "ingest <extracted.json> [more.json ...]",
		Short: "Ingest extracted document data into a project",
		Long: `Ingest registers extracted accounting documents for processing. Each file
holds the structured payload produced by the extraction step, as JSON keyed by
sheet or table name. The document type is classified from the filename unless
--type overrides it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if projectID == 0 {
				return fmt.Errorf("--project is required")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			// Fail early on a bad project ID rather than per file.
			if _, err := store.GetProjectByID(ctx, projectID); err != nil {
				return err
			}

			for _, path := range args {
				doc, ingestErr := buildDocument(path, projectID, docType)
				if ingestErr != nil {
					return ingestErr
				}

				if saveErr := store.SaveDocument(ctx, doc); saveErr != nil {
					return fmt.Errorf("failed to save document %s: %w", path, saveErr)
				}

				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Ingested %s as %s (confidence %d%%)",
					doc.Filename, doc.Type, doc.ClassificationConfidence)))
			}

			if err := store.UpdateProjectMetrics(ctx, projectID); err != nil {
				return fmt.Errorf("failed to refresh project metrics: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "project ID to ingest into")
	cmd.Flags().StringVar(&docType, "type", "", "override document type (general_ledger, profit_loss, balance_sheet, trial_balance, payroll, cash_flow, other)")
	return cmd
}

func buildDocument(path string, projectID int64, docTypeOverride string) (*model.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var extracted map[string]any
	if err := json.Unmarshal(data, &extracted); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object of extracted data: %w", path, err)
	}

	filename := filepath.Base(path)
	docType, confidence := model.ClassifyFilename(filename)
	if docTypeOverride != "" {
		docType = model.DocumentType(docTypeOverride)
		confidence = 100
	}

	return &model.Document{
		ProjectID:                projectID,
		Filename:                 filename,
		Type:                     docType,
		ClassificationConfidence: confidence,
		ExtractedData:            extracted,
	}, nil
}
