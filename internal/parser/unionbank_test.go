package parser

import (
	"testing"

	"github.com/pesobook/pesobook/internal/models"
)

func TestUnionBankNormalizer(t *testing.T) {
	n := &UnionBankNormalizer{}

	doc := &models.Document{Pages: []string{`Union Bank of the Philippines
Account Number: 1094-5678-9012

Date  Reference  Description  Amount  Balance
15 Jan 2024  240115001234  InstaPay to J DELA CRUZ  -500.00  12,340.00
16 Jan 2024  240116004321  Salary Credit ACME CORP  25,000.00  37,340.00
17 Jan 2024  240117009876  Service Fee  -15.00  37,325.00`}}

	records, issues := n.Normalize(doc)
	if len(issues) != 0 {
		t.Fatalf("issues: got %d, want 0: %v", len(issues), issues)
	}
	if len(records) != 3 {
		t.Fatalf("records: got %d, want 3", len(records))
	}

	// The amount column is already signed.
	if records[0].Amount != -500.00 {
		t.Errorf("records[0].Amount: got %.2f, want -500.00", records[0].Amount)
	}
	if records[1].Amount != 25000.00 {
		t.Errorf("records[1].Amount: got %.2f, want 25000.00", records[1].Amount)
	}

	if records[0].Reference != "240115001234" {
		t.Errorf("records[0].Reference: got %q", records[0].Reference)
	}
	if records[2].Balance == nil || *records[2].Balance != 37325.00 {
		t.Errorf("records[2].Balance: got %v, want 37325.00", records[2].Balance)
	}
	if records[0].Date.Day() != 15 || records[0].Date.Year() != 2024 {
		t.Errorf("records[0].Date: got %v", records[0].Date)
	}
}
