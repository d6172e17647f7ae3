// Package store is the relational ledger. All ingestion mutations happen
// inside one transaction so a failure partway through leaves the ledger in
// its pre-import state; ingestion for the same account is serialized with
// a Postgres advisory lock.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pesobook/pesobook/internal/category"
	"github.com/pesobook/pesobook/internal/models"
)

// ErrAlreadyImported means a statement with the same file fingerprint is
// already in the ledger. Re-imports are rejected before row-level work.
var ErrAlreadyImported = errors.New("statement already imported")

// ErrInvalidTransition guards the status lifecycle: duplicate and
// transfer-linked never convert into each other directly, only through
// active.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store wraps the ledger database.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to ledger database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle. Used by tests and by transaction
// scopes.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&models.Account{},
		&models.Statement{},
		&models.Transaction{},
		&models.MerchantCorrection{},
		&models.DuplicateReview{},
	)
	if err != nil {
		return fmt.Errorf("migrating ledger schema: %w", err)
	}
	return nil
}

// InTx runs fn inside one database transaction. The *Store passed to fn is
// scoped to that transaction; any error rolls everything back.
func (s *Store) InTx(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// LockAccount takes a transaction-scoped advisory lock on the account so
// two imports for the same account serialize. Released automatically at
// commit or rollback. Must be called inside InTx.
func (s *Store) LockAccount(accountID uuid.UUID) error {
	err := s.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", accountID.String()).Error
	if err != nil {
		return fmt.Errorf("locking account %s: %w", accountID, err)
	}
	return nil
}

// EnsureAccount finds or registers the account for a provider/number pair.
// The alias is only applied on first creation.
func (s *Store) EnsureAccount(provider models.ProviderFormat, accountNumber, alias string) (*models.Account, error) {
	acct := models.Account{
		ID:            uuid.New(),
		Provider:      provider,
		AccountNumber: accountNumber,
		Alias:         alias,
		CreatedAt:     time.Now(),
	}
	err := s.db.
		Where(&models.Account{Provider: provider, AccountNumber: accountNumber}).
		FirstOrCreate(&acct).Error
	if err != nil {
		return nil, fmt.Errorf("registering account: %w", err)
	}
	return &acct, nil
}

// CreateStatementIfNew inserts the statement unless its file fingerprint
// is already present, in which case ErrAlreadyImported comes back.
func (s *Store) CreateStatementIfNew(stmt *models.Statement) error {
	var count int64
	err := s.db.Model(&models.Statement{}).
		Where("fingerprint = ?", stmt.Fingerprint).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking statement fingerprint: %w", err)
	}
	if count > 0 {
		return ErrAlreadyImported
	}
	if err := s.db.Create(stmt).Error; err != nil {
		return fmt.Errorf("inserting statement: %w", err)
	}
	return nil
}

// LedgerWindow reads one account's entries with dates in [from, to].
func (s *Store) LedgerWindow(accountID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.db.
		Where("account_id = ? AND date BETWEEN ? AND ?", accountID, from, to).
		Order("date, created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("reading ledger window: %w", err)
	}
	return out, nil
}

// ActiveBetween reads active entries across all accounts in a date range,
// for the cross-account transfer pass.
func (s *Store) ActiveBetween(from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.db.
		Where("status = ? AND date BETWEEN ? AND ?", models.StatusActive, from, to).
		Order("date").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("reading active entries: %w", err)
	}
	return out, nil
}

// InsertTransactions batch-inserts ledger entries.
func (s *Store) InsertTransactions(txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(txns, 200).Error; err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}
	return nil
}

func (s *Store) getTransaction(id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", id, err)
	}
	return &t, nil
}

// MarkDuplicate transitions drop to status=duplicate with a back-reference
// to keep. Idempotent: marking an entry already pointing at keep is a
// no-op. A transfer-linked entry cannot become a duplicate directly.
func (s *Store) MarkDuplicate(keepID, dropID uuid.UUID) error {
	drop, err := s.getTransaction(dropID)
	if err != nil {
		return err
	}
	if drop.Status == models.StatusDuplicate {
		if drop.LinkedTo != nil && *drop.LinkedTo == keepID {
			return nil
		}
		return fmt.Errorf("%w: %s is already a duplicate of another entry", ErrInvalidTransition, dropID)
	}
	if drop.Status == models.StatusTransferLinked {
		return fmt.Errorf("%w: %s is transfer-linked; revert it to active first", ErrInvalidTransition, dropID)
	}
	keep, err := s.getTransaction(keepID)
	if err != nil {
		return err
	}
	if keep.Status != models.StatusActive {
		return fmt.Errorf("%w: keep target %s is not active", ErrInvalidTransition, keepID)
	}

	return s.db.Model(&models.Transaction{}).
		Where("id = ?", dropID).
		Updates(map[string]any{
			"status":    models.StatusDuplicate,
			"linked_to": keepID,
		}).Error
}

// LinkTransfer sets both entries to transfer-linked with mutual
// back-references. Idempotent for an already-linked pair; a duplicate
// cannot be transfer-linked directly.
func (s *Store) LinkTransfer(aID, bID uuid.UUID) error {
	a, err := s.getTransaction(aID)
	if err != nil {
		return err
	}
	b, err := s.getTransaction(bID)
	if err != nil {
		return err
	}
	if a.Status == models.StatusTransferLinked && b.Status == models.StatusTransferLinked &&
		a.LinkedTo != nil && *a.LinkedTo == bID && b.LinkedTo != nil && *b.LinkedTo == aID {
		return nil
	}
	for _, t := range []*models.Transaction{a, b} {
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: %s is %s; revert it to active first", ErrInvalidTransition, t.ID, t.Status)
		}
	}

	if err := s.db.Model(&models.Transaction{}).Where("id = ?", aID).
		Updates(map[string]any{"status": models.StatusTransferLinked, "linked_to": bID}).Error; err != nil {
		return err
	}
	return s.db.Model(&models.Transaction{}).Where("id = ?", bID).
		Updates(map[string]any{"status": models.StatusTransferLinked, "linked_to": aID}).Error
}

// RevertToActive returns an entry to active and clears its back-reference.
// Idempotent on already-active entries. Reverting one side of a transfer
// pair also reverts the other: a half-linked pair is not a valid state.
func (s *Store) RevertToActive(id uuid.UUID) error {
	t, err := s.getTransaction(id)
	if err != nil {
		return err
	}
	if t.Status == models.StatusActive {
		return nil
	}

	ids := []uuid.UUID{id}
	if t.Status == models.StatusTransferLinked && t.LinkedTo != nil {
		ids = append(ids, *t.LinkedTo)
	}
	return s.db.Model(&models.Transaction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": models.StatusActive, "linked_to": nil}).Error
}

// CreateReview persists a needs-review verdict for human resolution.
func (s *Store) CreateReview(review *models.DuplicateReview) error {
	if err := s.db.Create(review).Error; err != nil {
		return fmt.Errorf("recording duplicate review: %w", err)
	}
	return nil
}

// PendingReviews lists unresolved reviews, optionally scoped to one account.
func (s *Store) PendingReviews(accountID *uuid.UUID) ([]models.DuplicateReview, error) {
	q := s.db.Where("status = ?", models.ReviewPending)
	if accountID != nil {
		q = q.Where("account_id = ?", *accountID)
	}
	var out []models.DuplicateReview
	if err := q.Order("created_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing pending reviews: %w", err)
	}
	return out, nil
}

// ResolveReviewsFor marks every pending review naming either transaction
// as resolved.
func (s *Store) ResolveReviewsFor(ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Model(&models.DuplicateReview{}).
		Where("status = ? AND (incoming_id IN ? OR existing_id IN ?)", models.ReviewPending, ids, ids).
		Update("status", models.ReviewResolved).Error
}

// Corrections loads the full user-correction tier, for the categorizer's
// in-memory cache.
func (s *Store) Corrections() ([]models.MerchantCorrection, error) {
	var out []models.MerchantCorrection
	if err := s.db.Order("pattern").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("loading merchant corrections: %w", err)
	}
	return out, nil
}

// ApplyCorrection upserts one correction and retroactively re-categorizes
// every ledger entry whose description matches the pattern, in a single
// transaction. A failure in either write rolls back both. Returns the
// number of entries updated.
//
// The pattern is stored normalized and rows are matched against their
// normalized descriptions, the same predicate the categorization engine
// applies to future ingests. Normalization only trims the ends of a
// description, so a LIKE on the normalized pattern over-selects candidates
// and never misses one; the exact check runs here.
func (s *Store) ApplyCorrection(pattern, merchant string, cat models.Category) (int64, error) {
	norm := category.Normalize(pattern)
	if norm == "" {
		return 0, fmt.Errorf("correction pattern is empty")
	}

	var updated int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		corr := models.MerchantCorrection{
			ID:        uuid.New(),
			Pattern:   norm,
			Merchant:  merchant,
			Category:  cat,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pattern"}},
			DoUpdates: clause.AssignmentColumns([]string{"merchant", "category", "updated_at"}),
		}).Create(&corr).Error
		if err != nil {
			return fmt.Errorf("upserting correction: %w", err)
		}

		var candidates []models.Transaction
		err = tx.Select("id", "description").
			Where("UPPER(description) LIKE ?", "%"+norm+"%").
			Find(&candidates).Error
		if err != nil {
			return fmt.Errorf("selecting correction candidates: %w", err)
		}
		var ids []uuid.UUID
		for _, c := range candidates {
			if strings.Contains(category.Normalize(c.Description), norm) {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		res := tx.Model(&models.Transaction{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"merchant": merchant, "category": cat})
		if res.Error != nil {
			return fmt.Errorf("retroactive recategorization: %w", res.Error)
		}
		updated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UncategorizedCount reports how many active entries still carry the
// uncategorized sentinel. Callers use it to decide whether to prompt for
// more corrections.
func (s *Store) UncategorizedCount() (int64, error) {
	var n int64
	err := s.db.Model(&models.Transaction{}).
		Where("status = ? AND category = ?", models.StatusActive, models.CategoryUncategorized).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting uncategorized entries: %w", err)
	}
	return n, nil
}
