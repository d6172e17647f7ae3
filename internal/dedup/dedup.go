// Package dedup classifies incoming ledger entries against the existing
// ledger and links internal transfers between accounts. Classification
// uses three ordered signals, most authoritative first: provider reference
// match, content-fingerprint match, then a temporal near-match that is
// flagged for review rather than auto-resolved.
package dedup

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pesobook/pesobook/internal/models"
)

// Options tune the fuzzy signal. Zero values take the defaults.
type Options struct {
	// WindowDays bounds the temporal near-match scan to entries within
	// ±WindowDays of the incoming record.
	WindowDays int
	// SimilarityThreshold is the minimum description token similarity for
	// a near-match to be flagged.
	SimilarityThreshold float64
}

// DefaultWindowDays bounds the near-match and transfer scans when the
// caller does not set a window.
const DefaultWindowDays = 3

const (
	defaultSimilarity     = 0.82
	fingerprintConfidence = 0.95
)

func (o Options) withDefaults() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = defaultSimilarity
	}
	return o
}

// Engine indexes one account's ledger window for amortized O(1) lookups.
// Entries are bucketed by day so each classification only touches the
// window, never the whole ledger. Not safe for concurrent use; build one
// per ingestion batch.
type Engine struct {
	opts          Options
	accountID     uuid.UUID
	byRef         map[string]*models.Transaction
	byFingerprint map[string]*models.Transaction
	byDay         map[string][]*models.Transaction
}

// NewEngine builds an engine over the existing active entries of one
// account. Non-active entries are excluded: a record already marked
// duplicate must not shadow new imports.
func NewEngine(accountID uuid.UUID, existing []models.Transaction, opts Options) *Engine {
	e := &Engine{
		opts:          opts.withDefaults(),
		accountID:     accountID,
		byRef:         make(map[string]*models.Transaction),
		byFingerprint: make(map[string]*models.Transaction),
		byDay:         make(map[string][]*models.Transaction),
	}
	for i := range existing {
		t := &existing[i]
		if t.Status != models.StatusActive {
			continue
		}
		e.index(t)
	}
	return e
}

func (e *Engine) index(t *models.Transaction) {
	if t.Reference != "" {
		e.byRef[t.Reference] = t
	}
	if t.Fingerprint != "" {
		e.byFingerprint[t.Fingerprint] = t
	}
	day := dayKey(t.Date)
	e.byDay[day] = append(e.byDay[day], t)
}

// Add indexes a newly accepted entry so later records in the same batch
// are classified against it too.
func (e *Engine) Add(t *models.Transaction) {
	e.index(t)
}

// Classify runs the ordered signals against the indexed window.
func (e *Engine) Classify(incoming *models.Transaction) models.DuplicateVerdict {
	if incoming.Reference != "" {
		if hit, ok := e.byRef[incoming.Reference]; ok {
			return models.DuplicateVerdict{
				Kind:       models.VerdictExactDuplicate,
				Confidence: 1.0,
				Signal:     "reference",
				ExistingID: hit.ID,
				IncomingID: incoming.ID,
				Detail:     fmt.Sprintf("reference %s already in ledger", incoming.Reference),
			}
		}
	}

	if hit, ok := e.byFingerprint[incoming.Fingerprint]; ok {
		return models.DuplicateVerdict{
			Kind:       models.VerdictExactDuplicate,
			Confidence: fingerprintConfidence,
			Signal:     "fingerprint",
			ExistingID: hit.ID,
			IncomingID: incoming.ID,
			Detail:     "same day, amount, and description prefix",
		}
	}

	if v, ok := e.windowMatch(incoming); ok {
		return v
	}

	return models.DuplicateVerdict{
		Kind:       models.VerdictUnique,
		IncomingID: incoming.ID,
	}
}

// windowMatch scans the ±WindowDays buckets for a near-identical amount
// with a similar description. Fuzzy hits are never auto-resolved: the
// verdict is needs-review, confidence is the description similarity.
func (e *Engine) windowMatch(incoming *models.Transaction) (models.DuplicateVerdict, bool) {
	var best *models.Transaction
	bestSim := 0.0

	for offset := -e.opts.WindowDays; offset <= e.opts.WindowDays; offset++ {
		day := dayKey(incoming.Date.AddDate(0, 0, offset))
		for _, cand := range e.byDay[day] {
			if math.Abs(cand.Amount-incoming.Amount) > 0.005 {
				continue
			}
			sim := descSimilarity(cand.Description, incoming.Description)
			if sim >= e.opts.SimilarityThreshold && sim > bestSim {
				best, bestSim = cand, sim
			}
		}
	}

	if best == nil {
		return models.DuplicateVerdict{}, false
	}
	return models.DuplicateVerdict{
		Kind:       models.VerdictNeedsReview,
		Confidence: bestSim,
		Signal:     "window",
		ExistingID: best.ID,
		IncomingID: incoming.ID,
		Detail: fmt.Sprintf("same amount within %d days, description similarity %.2f",
			e.opts.WindowDays, bestSim),
	}, true
}

func dayKey(t time.Time) string {
	return t.In(models.Manila).Format("2006-01-02")
}

// descSimilarity is the Jaccard similarity of the uppercased token sets of
// two descriptions. Token sets tolerate reordering and branch/terminal
// suffixes better than edit distance at this text length.
func descSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// TransferPair is two cross-account entries that look like one internal
// transfer: equal magnitude, opposite sign, dates within the day window.
type TransferPair struct {
	Outflow    *models.Transaction
	Inflow     *models.Transaction
	Confidence float64
	DayGap     int
}

// FindTransfers pairs active entries across different accounts. Each entry
// joins at most one pair; candidates are matched greedily by smallest day
// gap. Confidence is highest for same-day pairs and decays as the gap
// widens. Runs after all per-account batches of an import session commit.
func FindTransfers(entries []models.Transaction, windowDays int) []TransferPair {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	// Outflows indexed by magnitude; inflows probe the index.
	byMagnitude := make(map[string][]*models.Transaction)
	var inflows []*models.Transaction
	for i := range entries {
		t := &entries[i]
		if t.Status != models.StatusActive {
			continue
		}
		switch {
		case t.Amount < 0:
			key := magnitudeKey(t.Amount)
			byMagnitude[key] = append(byMagnitude[key], t)
		case t.Amount > 0:
			inflows = append(inflows, t)
		}
	}

	used := make(map[uuid.UUID]bool)
	var pairs []TransferPair
	for _, in := range inflows {
		var best *models.Transaction
		bestGap := windowDays + 1
		for _, out := range byMagnitude[magnitudeKey(in.Amount)] {
			if out.AccountID == in.AccountID || used[out.ID] {
				continue
			}
			gap := dayGap(in.Date, out.Date)
			if gap <= windowDays && gap < bestGap {
				best, bestGap = out, gap
			}
		}
		if best == nil {
			continue
		}
		used[best.ID] = true
		used[in.ID] = true
		pairs = append(pairs, TransferPair{
			Outflow:    best,
			Inflow:     in,
			Confidence: transferConfidence(bestGap),
			DayGap:     bestGap,
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Confidence > pairs[j].Confidence
	})
	return pairs
}

func magnitudeKey(amount float64) string {
	return fmt.Sprintf("%.2f", math.Abs(amount))
}

// dayGap counts Manila calendar days between two instants. Truncate would
// cut on UTC midnights and disagree with the dayKey buckets.
func dayGap(a, b time.Time) int {
	da := a.In(models.Manila)
	db := b.In(models.Manila)
	ta := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, models.Manila)
	tb := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, models.Manila)
	gap := int(ta.Sub(tb).Hours() / 24)
	if gap < 0 {
		gap = -gap
	}
	return gap
}

// transferConfidence: 0.95 same day, minus 0.1 per day of gap, floored so a
// pair at the window edge still reads as a plausible transfer.
func transferConfidence(gap int) float64 {
	conf := 0.95 - 0.1*float64(gap)
	if conf < 0.5 {
		conf = 0.5
	}
	return conf
}
