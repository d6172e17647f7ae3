package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestContentFingerprint(t *testing.T) {
	acct := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	date := time.Date(2024, 1, 15, 20, 23, 0, 0, Manila)

	a := ContentFingerprint(acct, date, -285.00, "JOLLIBEE MANILA INC")
	b := ContentFingerprint(acct, date, -285.00, "JOLLIBEE MANILA INC")
	if a != b {
		t.Error("fingerprint is not deterministic")
	}

	// Time of day is ignored; only the day matters.
	morning := time.Date(2024, 1, 15, 8, 0, 0, 0, Manila)
	if got := ContentFingerprint(acct, morning, -285.00, "JOLLIBEE MANILA INC"); got != a {
		t.Error("fingerprint should truncate to the day")
	}

	// Each input dimension changes the hash.
	if got := ContentFingerprint(acct, date.AddDate(0, 0, 1), -285.00, "JOLLIBEE MANILA INC"); got == a {
		t.Error("different day, same fingerprint")
	}
	if got := ContentFingerprint(acct, date, -286.00, "JOLLIBEE MANILA INC"); got == a {
		t.Error("different amount, same fingerprint")
	}
	if got := ContentFingerprint(uuid.New(), date, -285.00, "JOLLIBEE MANILA INC"); got == a {
		t.Error("different account, same fingerprint")
	}

	// Case and surrounding whitespace are normalized.
	if got := ContentFingerprint(acct, date, -285.00, "  jollibee manila inc "); got != a {
		t.Error("case/whitespace should not change the fingerprint")
	}

	// Only the description prefix participates; trailing terminal noise
	// beyond it is ignored.
	long1 := ContentFingerprint(acct, date, -285.00, "JOLLIBEE MANILA INC BRANCH TERMINAL 3")
	long2 := ContentFingerprint(acct, date, -285.00, "JOLLIBEE MANILA INC BRANCH TERMINAL 7")
	if long1 != long2 {
		t.Error("suffix beyond the prefix length should not change the fingerprint")
	}
}

func TestDocumentLines(t *testing.T) {
	doc := &Document{Pages: []string{"a\nb  ", "c"}}
	lines := doc.Lines()
	want := []string{"a", "b", "c"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d]: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("Food & Dining"); !ok || c != CategoryFoodDining {
		t.Errorf("got %q ok=%v", c, ok)
	}
	if c, ok := ParseCategory("Snacks"); ok || c != CategoryUncategorized {
		t.Errorf("unknown label: got %q ok=%v, want Uncategorized false", c, ok)
	}
}
