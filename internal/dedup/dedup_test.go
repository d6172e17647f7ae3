package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pesobook/pesobook/internal/models"
)

var acctA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
var acctB = uuid.MustParse("22222222-2222-2222-2222-222222222222")

func entry(acct uuid.UUID, day int, amount float64, desc, ref string) models.Transaction {
	date := time.Date(2024, 1, day, 12, 0, 0, 0, models.Manila)
	return models.Transaction{
		ID:          uuid.New(),
		AccountID:   acct,
		Date:        date,
		Amount:      amount,
		Description: desc,
		Reference:   ref,
		Fingerprint: models.ContentFingerprint(acct, date, amount, desc),
		Status:      models.StatusActive,
	}
}

func TestClassify_ReferenceMatch(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "Payment to JOLLIBEE", "1002345678901")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	// Same reference on a different day and description still wins.
	incoming := entry(acctA, 17, -285.00, "JOLLIBEE PAYMENT RETRY", "1002345678901")
	v := e.Classify(&incoming)

	if v.Kind != models.VerdictExactDuplicate {
		t.Fatalf("kind: got %q, want exact_duplicate", v.Kind)
	}
	if v.Confidence != 1.0 {
		t.Errorf("confidence: got %f, want 1.0", v.Confidence)
	}
	if v.Signal != "reference" {
		t.Errorf("signal: got %q, want reference", v.Signal)
	}
	if v.ExistingID != existing.ID {
		t.Errorf("existing id mismatch")
	}
}

func TestClassify_FingerprintMatch(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	incoming := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	v := e.Classify(&incoming)

	if v.Kind != models.VerdictExactDuplicate {
		t.Fatalf("kind: got %q, want exact_duplicate", v.Kind)
	}
	if v.Confidence != 0.95 {
		t.Errorf("confidence: got %f, want 0.95", v.Confidence)
	}
	if v.Signal != "fingerprint" {
		t.Errorf("signal: got %q, want fingerprint", v.Signal)
	}
}

// When both signals would fire, reference outranks fingerprint.
func TestClassify_ReferenceOutranksFingerprint(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "1002345678901")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	incoming := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "1002345678901")
	v := e.Classify(&incoming)

	if v.Signal != "reference" || v.Confidence != 1.0 {
		t.Errorf("got signal %q confidence %f, want reference 1.0", v.Signal, v.Confidence)
	}
}

func TestClassify_WindowNeedsReview(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	// Two days later, same amount and description: the day-sensitive
	// fingerprint differs, so this is flagged, never auto-merged.
	incoming := entry(acctA, 17, -285.00, "JOLLIBEE MANILA INC", "")
	v := e.Classify(&incoming)

	if v.Kind != models.VerdictNeedsReview {
		t.Fatalf("kind: got %q, want needs_review", v.Kind)
	}
	if v.Signal != "window" {
		t.Errorf("signal: got %q, want window", v.Signal)
	}
	if v.Confidence < 0.82 {
		t.Errorf("confidence: got %f, want >= 0.82", v.Confidence)
	}
}

// Descriptions differing by a branch token sit below the default
// similarity threshold but can be flagged with a looser one.
func TestClassify_ThresholdTunable(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC BRANCH 12", "")
	incoming := entry(acctA, 16, -285.00, "JOLLIBEE MANILA INC BRANCH 14", "")

	strict := NewEngine(acctA, []models.Transaction{existing}, Options{})
	if v := strict.Classify(&incoming); v.Kind != models.VerdictUnique {
		t.Errorf("default threshold: got %q, want unique", v.Kind)
	}

	loose := NewEngine(acctA, []models.Transaction{existing}, Options{SimilarityThreshold: 0.5})
	if v := loose.Classify(&incoming); v.Kind != models.VerdictNeedsReview {
		t.Errorf("loose threshold: got %q, want needs_review", v.Kind)
	}
}

func TestClassify_OutsideWindowIsUnique(t *testing.T) {
	existing := entry(acctA, 10, -285.00, "JOLLIBEE MANILA INC", "")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	incoming := entry(acctA, 20, -285.00, "JOLLIBEE MANILA INC BRANCH", "")
	if v := e.Classify(&incoming); v.Kind != models.VerdictUnique {
		t.Errorf("kind: got %q, want unique", v.Kind)
	}
}

func TestClassify_DissimilarDescriptionIsUnique(t *testing.T) {
	existing := entry(acctA, 15, -285.00, "MERALCO BILLS PAYMENT", "")
	e := NewEngine(acctA, []models.Transaction{existing}, Options{})

	incoming := entry(acctA, 15, -285.00, "GRAB RIDE MAKATI", "")
	if v := e.Classify(&incoming); v.Kind != models.VerdictUnique {
		t.Errorf("kind: got %q, want unique", v.Kind)
	}
}

// Classifying A against {B} and B against {A} must agree on the verdict.
func TestClassify_Symmetric(t *testing.T) {
	a := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	b := entry(acctA, 16, -285.00, "JOLLIBEE MANILA INC", "")

	va := NewEngine(acctA, []models.Transaction{b}, Options{}).Classify(&a)
	vb := NewEngine(acctA, []models.Transaction{a}, Options{}).Classify(&b)

	if va.Kind != vb.Kind {
		t.Errorf("asymmetric verdicts: %q vs %q", va.Kind, vb.Kind)
	}
}

func TestClassify_IgnoresNonActive(t *testing.T) {
	dup := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	dup.Status = models.StatusDuplicate
	e := NewEngine(acctA, []models.Transaction{dup}, Options{})

	incoming := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	if v := e.Classify(&incoming); v.Kind != models.VerdictUnique {
		t.Errorf("kind: got %q, want unique; non-active entries must not shadow", v.Kind)
	}
}

func TestAdd_WithinBatchDetection(t *testing.T) {
	e := NewEngine(acctA, nil, Options{})

	first := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	if v := e.Classify(&first); v.Kind != models.VerdictUnique {
		t.Fatalf("first: got %q, want unique", v.Kind)
	}
	e.Add(&first)

	second := entry(acctA, 15, -285.00, "JOLLIBEE MANILA INC", "")
	if v := e.Classify(&second); v.Kind != models.VerdictExactDuplicate {
		t.Errorf("second: got %q, want exact_duplicate", v.Kind)
	}
}

func TestFindTransfers(t *testing.T) {
	out := entry(acctA, 15, -5000.00, "InstaPay to UnionBank", "")
	in := entry(acctB, 15, 5000.00, "InstaPay from BDO", "")
	unrelated := entry(acctB, 15, 5000.00, "Salary", "")
	unrelated.AccountID = acctA // same account as the outflow; cannot pair

	pairs := FindTransfers([]models.Transaction{out, in, unrelated}, 3)
	if len(pairs) != 1 {
		t.Fatalf("pairs: got %d, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Outflow.ID != out.ID || p.Inflow.ID != in.ID {
		t.Errorf("paired wrong entries")
	}
	if p.DayGap != 0 {
		t.Errorf("day gap: got %d, want 0", p.DayGap)
	}
	if p.Confidence != 0.95 {
		t.Errorf("confidence: got %f, want 0.95", p.Confidence)
	}
}

func TestFindTransfers_ConfidenceDecays(t *testing.T) {
	out := entry(acctA, 15, -5000.00, "InstaPay out", "")
	in := entry(acctB, 17, 5000.00, "InstaPay in", "")

	pairs := FindTransfers([]models.Transaction{out, in}, 3)
	if len(pairs) != 1 {
		t.Fatalf("pairs: got %d, want 1", len(pairs))
	}
	if pairs[0].DayGap != 2 {
		t.Errorf("day gap: got %d, want 2", pairs[0].DayGap)
	}
	if pairs[0].Confidence >= 0.95 {
		t.Errorf("confidence should decay with gap, got %f", pairs[0].Confidence)
	}
}

func entryAt(acct uuid.UUID, day, hour int, amount float64, desc string) models.Transaction {
	date := time.Date(2024, 1, day, hour, 0, 0, 0, models.Manila)
	return models.Transaction{
		ID:          uuid.New(),
		AccountID:   acct,
		Date:        date,
		Amount:      amount,
		Description: desc,
		Fingerprint: models.ContentFingerprint(acct, date, amount, desc),
		Status:      models.StatusActive,
	}
}

// Gaps count Manila calendar days, not 24-hour spans. 02:00 and 20:00 on
// the same date are 18 hours apart but zero days.
func TestDayGap_ManilaCalendarDays(t *testing.T) {
	early := time.Date(2024, 1, 15, 2, 0, 0, 0, models.Manila)
	late := time.Date(2024, 1, 15, 20, 0, 0, 0, models.Manila)
	if got := dayGap(early, late); got != 0 {
		t.Errorf("same Manila day: got %d, want 0", got)
	}

	nextEarly := time.Date(2024, 1, 16, 1, 0, 0, 0, models.Manila)
	if got := dayGap(late, nextEarly); got != 1 {
		t.Errorf("adjacent Manila days: got %d, want 1", got)
	}

	farEarly := time.Date(2024, 1, 19, 2, 0, 0, 0, models.Manila)
	if got := dayGap(late, farEarly); got != 4 {
		t.Errorf("Jan 15 23h-ish to Jan 19: got %d, want 4", got)
	}
}

func TestFindTransfers_SameManilaDayScoresTop(t *testing.T) {
	out := entryAt(acctA, 15, 20, -5000.00, "InstaPay out")
	in := entryAt(acctB, 15, 2, 5000.00, "InstaPay in")

	pairs := FindTransfers([]models.Transaction{out, in}, 3)
	if len(pairs) != 1 {
		t.Fatalf("pairs: got %d, want 1", len(pairs))
	}
	if pairs[0].DayGap != 0 {
		t.Errorf("day gap: got %d, want 0", pairs[0].DayGap)
	}
	if pairs[0].Confidence != 0.95 {
		t.Errorf("confidence: got %f, want 0.95", pairs[0].Confidence)
	}
}

// Jan 15 23:00 to Jan 19 02:00 is four Manila calendar days; a 3-day
// window must not pair them even though only ~75 hours elapse.
func TestFindTransfers_WindowCountsManilaDays(t *testing.T) {
	out := entryAt(acctA, 15, 23, -5000.00, "InstaPay out")
	in := entryAt(acctB, 19, 2, 5000.00, "InstaPay in")

	if pairs := FindTransfers([]models.Transaction{out, in}, 3); len(pairs) != 0 {
		t.Errorf("pairs: got %d, want 0", len(pairs))
	}
}

func TestFindTransfers_OutsideWindow(t *testing.T) {
	out := entry(acctA, 10, -5000.00, "InstaPay out", "")
	in := entry(acctB, 20, 5000.00, "InstaPay in", "")

	if pairs := FindTransfers([]models.Transaction{out, in}, 3); len(pairs) != 0 {
		t.Errorf("pairs: got %d, want 0", len(pairs))
	}
}

func TestDescSimilarity(t *testing.T) {
	if got := descSimilarity("JOLLIBEE MANILA INC", "JOLLIBEE MANILA INC"); got != 1.0 {
		t.Errorf("identical: got %f, want 1.0", got)
	}
	if got := descSimilarity("JOLLIBEE MANILA INC", "MERALCO PAYMENT"); got != 0 {
		t.Errorf("disjoint: got %f, want 0", got)
	}
	partial := descSimilarity("JOLLIBEE MANILA INC BRANCH 12", "JOLLIBEE MANILA INC BRANCH 14")
	if partial <= 0.5 || partial >= 1.0 {
		t.Errorf("partial overlap: got %f, want (0.5, 1.0)", partial)
	}
}
