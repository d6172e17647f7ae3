// Package ingest orchestrates the statement import pipeline: extract,
// detect, normalize, score, persist, deduplicate, categorize. One
// statement runs end to end inside one storage transaction; a failure at
// any stage leaves the ledger untouched.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pesobook/pesobook/internal/category"
	"github.com/pesobook/pesobook/internal/dedup"
	"github.com/pesobook/pesobook/internal/extractor"
	"github.com/pesobook/pesobook/internal/models"
	"github.com/pesobook/pesobook/internal/parser"
	"github.com/pesobook/pesobook/internal/quality"
	"github.com/pesobook/pesobook/internal/store"
)

// Ledger is the storage surface the pipeline needs. *store.Store satisfies
// it through the adapter in NewService; tests substitute an in-memory fake.
type Ledger interface {
	InTx(fn func(tx Ledger) error) error
	LockAccount(accountID uuid.UUID) error
	EnsureAccount(provider models.ProviderFormat, accountNumber, alias string) (*models.Account, error)
	CreateStatementIfNew(stmt *models.Statement) error
	LedgerWindow(accountID uuid.UUID, from, to time.Time) ([]models.Transaction, error)
	ActiveBetween(from, to time.Time) ([]models.Transaction, error)
	InsertTransactions(txns []models.Transaction) error
	MarkDuplicate(keepID, dropID uuid.UUID) error
	LinkTransfer(aID, bID uuid.UUID) error
	RevertToActive(id uuid.UUID) error
	CreateReview(review *models.DuplicateReview) error
	PendingReviews(accountID *uuid.UUID) ([]models.DuplicateReview, error)
	ResolveReviewsFor(ids ...uuid.UUID) error
	Corrections() ([]models.MerchantCorrection, error)
	ApplyCorrection(pattern, merchant string, cat models.Category) (int64, error)
	UncategorizedCount() (int64, error)
}

type storeLedger struct {
	*store.Store
}

func (s storeLedger) InTx(fn func(tx Ledger) error) error {
	return s.Store.InTx(func(tx *store.Store) error {
		return fn(storeLedger{tx})
	})
}

// Options tune the pipeline.
type Options struct {
	// MinQuality is the gate threshold; batches scoring below it are
	// rejected whole. Defaults to the medium band floor.
	MinQuality int
	// Dedup options are passed through to the engine.
	Dedup dedup.Options
}

func (o Options) withDefaults() Options {
	if o.MinQuality <= 0 {
		o.MinQuality = quality.MediumThreshold
	}
	return o
}

// Service is the single entry point the CLI and HTTP surfaces call.
type Service struct {
	ledger  Ledger
	catalog *category.Engine
	opts    Options
	log     *slog.Logger

	// extract is swappable for tests.
	extract func(path, password string) (*models.Document, error)
}

// NewService wires the pipeline over a live store, loading the persisted
// correction tier into the categorizer.
func NewService(st *store.Store, log *slog.Logger, opts Options) (*Service, error) {
	return newService(storeLedger{st}, log, opts)
}

func newService(ledger Ledger, log *slog.Logger, opts Options) (*Service, error) {
	corrections, err := ledger.Corrections()
	if err != nil {
		return nil, err
	}
	catalog, err := category.NewEngine(corrections)
	if err != nil {
		return nil, err
	}
	return &Service{
		ledger:  ledger,
		catalog: catalog,
		opts:    opts.withDefaults(),
		log:     log,
		extract: extractor.ExtractDocument,
	}, nil
}

// IngestOptions carries the per-call inputs alongside the file path.
type IngestOptions struct {
	// Provider overrides format detection when set.
	Provider models.ProviderFormat
	// Password opens protected documents.
	Password string
	// AccountAlias names the account if this import registers it.
	AccountAlias string
}

// Ingest imports one statement document end to end. Document errors,
// unknown formats, and quality-gate failures come back as errors with the
// ledger untouched; row-level problems are collected into the result.
func (s *Service) Ingest(path string, opts IngestOptions) (*models.IngestResult, error) {
	doc, err := s.extract(path, opts.Password)
	if err != nil {
		return nil, err
	}

	format := opts.Provider
	if format == models.ProviderUnknown {
		format, err = parser.Detect(doc.Pages)
		if err != nil {
			return nil, err
		}
	}
	norm, err := parser.New(format)
	if err != nil {
		return nil, err
	}

	records, issues := norm.Normalize(doc)
	score := quality.Score(records, issues, quality.Shape{ExpectBalance: norm.ReportsBalance()})
	if err := quality.Gate(score, s.opts.MinQuality, issues); err != nil {
		s.log.Warn("statement rejected by quality gate",
			"provider", norm.ProviderName(), "score", score, "issues", len(issues))
		return nil, err
	}

	meta := parser.ExtractMeta(doc)
	periodStart, periodEnd := statementPeriod(meta, records)

	result := &models.IngestResult{
		Provider:     format,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		QualityScore: score,
		QualityLevel: quality.Level(score),
		Issues:       issues,
	}

	err = s.ledger.InTx(func(tx Ledger) error {
		acct, err := tx.EnsureAccount(format, meta.AccountNumber, opts.AccountAlias)
		if err != nil {
			return err
		}
		if err := tx.LockAccount(acct.ID); err != nil {
			return err
		}
		result.AccountID = acct.ID

		stmt := &models.Statement{
			ID:           uuid.New(),
			AccountID:    acct.ID,
			Fingerprint:  doc.Fingerprint,
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
			QualityScore: score,
			RawText:      doc.RawText,
			CreatedAt:    time.Now(),
		}
		if err := tx.CreateStatementIfNew(stmt); err != nil {
			return err
		}
		result.StatementID = stmt.ID

		return s.importRecords(tx, acct.ID, stmt, records, periodStart, periodEnd, result)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyImported) {
			result.AlreadyImported = true
			s.log.Info("statement already imported", "provider", norm.ProviderName())
			return result, nil
		}
		return nil, err
	}

	s.log.Info("statement imported",
		"provider", norm.ProviderName(),
		"imported", result.Imported,
		"score", result.QualityScore,
		"duplicates", len(result.DuplicateWarnings),
		"categorized", result.Categorized)
	return result, nil
}

// importRecords classifies, categorizes, and persists the batch inside
// the caller's transaction.
func (s *Service) importRecords(tx Ledger, accountID uuid.UUID, stmt *models.Statement,
	records []models.Record, periodStart, periodEnd time.Time, result *models.IngestResult) error {

	windowDays := s.opts.Dedup.WindowDays
	if windowDays <= 0 {
		windowDays = dedup.DefaultWindowDays
	}
	windowPad := time.Duration(windowDays+1) * 24 * time.Hour
	existing, err := tx.LedgerWindow(accountID, periodStart.Add(-windowPad), periodEnd.Add(windowPad))
	if err != nil {
		return err
	}
	engine := dedup.NewEngine(accountID, existing, s.opts.Dedup)

	batch := make([]models.Transaction, 0, len(records))
	var reviews []*models.DuplicateReview
	for _, rec := range records {
		entry := models.Transaction{
			ID:          uuid.New(),
			AccountID:   accountID,
			StatementID: stmt.ID,
			Date:        rec.Date,
			Amount:      rec.Amount,
			Balance:     rec.Balance,
			Description: rec.Description,
			Reference:   rec.Reference,
			Fingerprint: models.ContentFingerprint(accountID, rec.Date, rec.Amount, rec.Description),
			Status:      models.StatusActive,
			CreatedAt:   time.Now(),
		}

		cat := s.catalog.Categorize(rec.Description)
		entry.Merchant = cat.Merchant
		entry.Category = cat.Category
		if cat.Matched {
			result.Categorized++
		}

		verdict := engine.Classify(&entry)
		switch verdict.Kind {
		case models.VerdictExactDuplicate:
			existingID := verdict.ExistingID
			entry.Status = models.StatusDuplicate
			entry.LinkedTo = &existingID
			result.DuplicateWarnings = append(result.DuplicateWarnings, verdict)
		case models.VerdictNeedsReview:
			reviews = append(reviews, &models.DuplicateReview{
				ID:         uuid.New(),
				AccountID:  accountID,
				IncomingID: entry.ID,
				ExistingID: verdict.ExistingID,
				Confidence: verdict.Confidence,
				Signal:     verdict.Signal,
				Status:     models.ReviewPending,
				CreatedAt:  time.Now(),
			})
			result.DuplicateWarnings = append(result.DuplicateWarnings, verdict)
			engine.Add(&entry)
		default:
			engine.Add(&entry)
		}

		if entry.Status == models.StatusActive {
			result.Imported++
			if entry.Amount > 0 {
				result.TotalInflow += entry.Amount
			} else {
				result.TotalOutflow += -entry.Amount
			}
		}
		batch = append(batch, entry)
	}

	if err := tx.InsertTransactions(batch); err != nil {
		return err
	}
	for _, r := range reviews {
		if err := tx.CreateReview(r); err != nil {
			return err
		}
	}

	stmt.TxnCount = len(batch)
	return nil
}

// statementPeriod prefers the declared period and falls back to the
// min/max record dates when the document does not state one.
func statementPeriod(meta parser.StatementMeta, records []models.Record) (time.Time, time.Time) {
	if !meta.PeriodStart.IsZero() && !meta.PeriodEnd.IsZero() {
		return meta.PeriodStart, meta.PeriodEnd
	}
	if len(records) == 0 {
		now := time.Now().In(models.Manila)
		return now, now
	}
	start, end := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}
	return start, end
}

// ReviewDuplicates lists pending near-duplicate verdicts, optionally
// scoped to one account.
func (s *Service) ReviewDuplicates(accountID *uuid.UUID) ([]models.DuplicateReview, error) {
	return s.ledger.PendingReviews(accountID)
}

// ResolveAction is a human decision on a flagged pair.
type ResolveAction string

const (
	ActionMerge        ResolveAction = "merge"
	ActionKeepBoth     ResolveAction = "keep-both"
	ActionLinkTransfer ResolveAction = "link-transfer"
)

// Resolve applies a human decision to a pair of entries. merge keeps the
// first id and marks the second a duplicate of it; keep-both dismisses the
// review; link-transfer pairs the two as one internal transfer. All paths
// resolve any pending reviews naming either entry.
func (s *Service) Resolve(action ResolveAction, keepID, otherID uuid.UUID) error {
	return s.ledger.InTx(func(tx Ledger) error {
		switch action {
		case ActionMerge:
			if err := tx.MarkDuplicate(keepID, otherID); err != nil {
				return err
			}
		case ActionKeepBoth:
			// Both stay active; only the review closes.
		case ActionLinkTransfer:
			if err := tx.LinkTransfer(keepID, otherID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown resolve action %q", action)
		}
		return tx.ResolveReviewsFor(keepID, otherID)
	})
}

// Revert returns an entry (and its transfer partner, if linked) to active.
func (s *Service) Revert(id uuid.UUID) error {
	return s.ledger.InTx(func(tx Ledger) error {
		return tx.RevertToActive(id)
	})
}

// TransferScan links internal transfers across accounts in a date range.
// Runs after all per-account batches of an import session have committed.
// Returns the number of pairs linked.
func (s *Service) TransferScan(from, to time.Time) (int, error) {
	entries, err := s.ledger.ActiveBetween(from, to)
	if err != nil {
		return 0, err
	}
	pairs := dedup.FindTransfers(entries, s.opts.Dedup.WindowDays)

	linked := 0
	err = s.ledger.InTx(func(tx Ledger) error {
		for _, p := range pairs {
			if err := tx.LinkTransfer(p.Outflow.ID, p.Inflow.ID); err != nil {
				return err
			}
			linked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if linked > 0 {
		s.log.Info("internal transfers linked", "pairs", linked)
	}
	return linked, nil
}

// CorrectMerchant records a user correction and retroactively
// re-categorizes matching ledger entries; both writes commit atomically in
// the store. The in-memory tier updates only after the commit. Returns the
// retroactive update count.
func (s *Service) CorrectMerchant(pattern, merchant string, cat models.Category) (int64, error) {
	updated, err := s.ledger.ApplyCorrection(pattern, merchant, cat)
	if err != nil {
		return 0, err
	}
	s.catalog.AddCorrection(pattern, merchant, cat)
	s.log.Info("merchant correction applied",
		"pattern", pattern, "merchant", merchant, "category", cat, "retroactive", updated)
	return updated, nil
}

// UncategorizedCount reports how many active entries still need a category.
func (s *Service) UncategorizedCount() (int64, error) {
	return s.ledger.UncategorizedCount()
}
