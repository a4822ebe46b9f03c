package model

import (
	"strings"
	"time"
)

// DocumentType classifies a source accounting document.
type DocumentType string

// Document type constants.
const (
	DocTypeGeneralLedger DocumentType = "general_ledger"
	DocTypeProfitLoss    DocumentType = "profit_loss"
	DocTypeBalanceSheet  DocumentType = "balance_sheet"
	DocTypeTrialBalance  DocumentType = "trial_balance"
	DocTypePayroll       DocumentType = "payroll"
	DocTypeCashFlow      DocumentType = "cash_flow"
	DocTypeOther         DocumentType = "other"
)

// DocumentStatus tracks a document through the processing engine.
type DocumentStatus string

// Document status constants.
const (
	DocStatusPending    DocumentStatus = "pending"
	DocStatusProcessing DocumentStatus = "processing"
	DocStatusCompleted  DocumentStatus = "completed"
	DocStatusError      DocumentStatus = "error"
)

// Document is an ingested accounting document. ExtractedData holds the
// structured payload produced upstream (sheet/table name to rows); quill never
// parses the source file itself.
type Document struct {
	UploadedAt    time.Time
	ProcessedAt   *time.Time
	ExtractedData map[string]any
	ID            string
	Filename      string
	ErrorMessage  string
	Type          DocumentType
	Status        DocumentStatus

	ProjectID int64

	// Processing duration in milliseconds.
	ProcessingTime int64

	// Classification confidence, 0-100.
	ClassificationConfidence int
}

// LedgerType reports whether the document type carries ledger-style financial
// data that the adjustment pipeline can analyze.
func (d *Document) LedgerType() bool {
	switch d.Type {
	case DocTypeGeneralLedger, DocTypeProfitLoss, DocTypeBalanceSheet, DocTypeTrialBalance:
		return true
	case DocTypePayroll, DocTypeCashFlow, DocTypeOther:
		return false
	}
	return false
}

// classificationKeywords maps document types to filename fragments that
// identify them. Order matters: earlier entries win on overlap.
var classificationKeywords = []struct {
	docType  DocumentType
	keywords []string
}{
	{DocTypeGeneralLedger, []string{"general ledger", "ledger", "gl"}},
	{DocTypeProfitLoss, []string{"profit loss", "income statement", "p&l", "pl"}},
	{DocTypeBalanceSheet, []string{"balance sheet", "statement of position", "bs"}},
	{DocTypeTrialBalance, []string{"trial balance", "trial", "tb"}},
	{DocTypePayroll, []string{"payroll register", "payroll", "salary"}},
	{DocTypeCashFlow, []string{"statement of cash flows", "cash flow", "cf"}},
}

// ClassifyFilename derives a document type from filename keywords. Matches
// return with confidence 80; anything unrecognized classifies as other with
// confidence 50.
func ClassifyFilename(filename string) (DocumentType, int) {
	lower := strings.ToLower(filename)
	for _, entry := range classificationKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.docType, 80
			}
		}
	}
	return DocTypeOther, 50
}
