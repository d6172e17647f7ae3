package parser

import (
	"testing"

	"github.com/pesobook/pesobook/internal/models"
)

func TestBDONormalizer(t *testing.T) {
	n := &BDONormalizer{}

	doc := &models.Document{Pages: []string{`BDO Unibank, Inc.
Account Number: 0012-3456-7890

Date  Description  Amount  Balance
01/15/2024  POS JOLLIBEE MAKATI  (285.00)  1,214.50
01/16/2024  CASH DEPOSIT  1,000.00  2,214.50
01/17/2024  INSTAPAY TO GCASH JUAN  (500.00)  1,714.50`}}

	records, issues := n.Normalize(doc)
	if len(issues) != 0 {
		t.Fatalf("issues: got %d, want 0: %v", len(issues), issues)
	}
	if len(records) != 3 {
		t.Fatalf("records: got %d, want 3", len(records))
	}

	// Parenthesized amounts are outflows.
	if records[0].Amount != -285.00 {
		t.Errorf("records[0].Amount: got %.2f, want -285.00", records[0].Amount)
	}
	if records[1].Amount != 1000.00 {
		t.Errorf("records[1].Amount: got %.2f, want 1000.00", records[1].Amount)
	}
	if records[2].Amount != -500.00 {
		t.Errorf("records[2].Amount: got %.2f, want -500.00", records[2].Amount)
	}

	// MM/DD ordering: 01/15 is January 15, not the 1st of a 15th month.
	if records[0].Date.Month() != 1 || records[0].Date.Day() != 15 {
		t.Errorf("records[0].Date: got %v, want Jan 15", records[0].Date)
	}
	if records[1].Balance == nil || *records[1].Balance != 2214.50 {
		t.Errorf("records[1].Balance: got %v, want 2214.50", records[1].Balance)
	}
}
