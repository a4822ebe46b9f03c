package model

import "testing"

func TestClassifyFilename(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		wantType       DocumentType
		wantConfidence int
	}{
		{"general ledger", "2023 General Ledger.xlsx", DocTypeGeneralLedger, 80},
		{"gl abbreviation", "acme_gl_export.csv", DocTypeGeneralLedger, 80},
		{"profit and loss", "P&L Q4.xlsx", DocTypeProfitLoss, 80},
		{"income statement", "income statement draft.pdf", DocTypeProfitLoss, 80},
		{"balance sheet", "Balance Sheet FY23.xlsx", DocTypeBalanceSheet, 80},
		{"trial balance", "trial balance.csv", DocTypeTrialBalance, 80},
		{"payroll", "Payroll Register March.xlsx", DocTypePayroll, 80},
		{"cash flow", "statement of cash flows.pdf", DocTypeCashFlow, 80},
		{"unrecognized", "notes.docx", DocTypeOther, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotConfidence := ClassifyFilename(tt.filename)
			if gotType != tt.wantType {
				t.Errorf("ClassifyFilename(%q) type = %s, want %s", tt.filename, gotType, tt.wantType)
			}
			if gotConfidence != tt.wantConfidence {
				t.Errorf("ClassifyFilename(%q) confidence = %d, want %d", tt.filename, gotConfidence, tt.wantConfidence)
			}
		})
	}
}

func TestDocumentLedgerType(t *testing.T) {
	ledger := []DocumentType{DocTypeGeneralLedger, DocTypeProfitLoss, DocTypeBalanceSheet, DocTypeTrialBalance}
	for _, dt := range ledger {
		doc := Document{Type: dt}
		if !doc.LedgerType() {
			t.Errorf("expected %s to be a ledger type", dt)
		}
	}

	other := []DocumentType{DocTypePayroll, DocTypeCashFlow, DocTypeOther}
	for _, dt := range other {
		doc := Document{Type: dt}
		if doc.LedgerType() {
			t.Errorf("expected %s not to be a ledger type", dt)
		}
	}
}
