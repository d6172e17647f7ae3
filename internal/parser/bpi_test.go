package parser

import (
	"testing"

	"github.com/pesobook/pesobook/internal/models"
)

func TestBPINormalizer(t *testing.T) {
	n := &BPINormalizer{}

	doc := &models.Document{Pages: []string{`Bank of the Philippine Islands
Account Number: 1234-5678-9012
Statement Period: January 1, 2024 to January 31, 2024

Date  Description  Debit  Credit  Balance
January 15, 2024  POS PURCHASE JOLLIBEE  285.00  0.00  1,214.50
January 16, 2024  DEPOSIT PAYROLL  2,500.00  3,714.50
January 17, 2024  BILLS PAYMENT MERALCO  2,340.75  0.00  1,373.75`}}

	records, issues := n.Normalize(doc)
	if len(issues) != 0 {
		t.Fatalf("issues: got %d, want 0: %v", len(issues), issues)
	}
	if len(records) != 3 {
		t.Fatalf("records: got %d, want 3", len(records))
	}

	// Populated debit column.
	if records[0].Amount != -285.00 {
		t.Errorf("records[0].Amount: got %.2f, want -285.00", records[0].Amount)
	}
	// Collapsed single-amount row, recovered from balance progression:
	// 1,214.50 + 2,500.00 = 3,714.50.
	if records[1].Amount != 2500.00 {
		t.Errorf("records[1].Amount: got %.2f, want 2500.00", records[1].Amount)
	}
	if records[2].Amount != -2340.75 {
		t.Errorf("records[2].Amount: got %.2f, want -2340.75", records[2].Amount)
	}

	if records[0].Balance == nil || *records[0].Balance != 1214.50 {
		t.Errorf("records[0].Balance: got %v, want 1214.50", records[0].Balance)
	}
	if records[0].Date.Day() != 15 || records[0].Date.Month() != 1 {
		t.Errorf("records[0].Date: got %v", records[0].Date)
	}
}

func TestBPINormalizer_BadDate(t *testing.T) {
	n := &BPINormalizer{}

	doc := &models.Document{Pages: []string{`Date  Description  Debit  Credit  Balance
January 45, 2024  GHOST ROW  100.00  0.00  900.00
January 16, 2024  REAL ROW DEPOSIT  500.00  1,400.00`}}

	records, issues := n.Normalize(doc)
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	if len(issues) != 1 || issues[0].Kind != models.IssueBadDate {
		t.Fatalf("issues: got %v, want one bad_date", issues)
	}
}
