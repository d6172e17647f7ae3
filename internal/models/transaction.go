package models

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderFormat identifies the statement layout of one issuing institution.
type ProviderFormat string

const (
	ProviderGCash     ProviderFormat = "gcash"
	ProviderMaya      ProviderFormat = "maya"
	ProviderBPI       ProviderFormat = "bpi"
	ProviderBDO       ProviderFormat = "bdo"
	ProviderUnionBank ProviderFormat = "unionbank"
	// ProviderGrabPay is recognized but has no machine-parseable statement export.
	ProviderGrabPay ProviderFormat = "grabpay"
	ProviderUnknown ProviderFormat = ""
)

// Manila is the fixed statement timezone. Provider exports carry local
// wall-clock times with no offset; parsing them in a fixed zone keeps
// fingerprints reproducible regardless of the host timezone.
var Manila = time.FixedZone("PST", 8*60*60)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusActive         TransactionStatus = "active"
	StatusDuplicate      TransactionStatus = "duplicate"
	StatusTransferLinked TransactionStatus = "transfer_linked"
)

// Record is one normalized statement row before it becomes a ledger entry.
type Record struct {
	Date        time.Time
	Amount      float64 // signed: positive inflow, negative outflow
	Description string  // verbatim from the statement
	Balance     *float64
	Reference   string
}

// IssueKind classifies a structural problem found while normalizing rows.
type IssueKind string

const (
	IssueBadDate       IssueKind = "bad_date"
	IssueBadAmount     IssueKind = "bad_amount"
	IssueZeroAmount    IssueKind = "zero_amount"
	IssueMissingColumn IssueKind = "missing_column"
	IssueBalanceGap    IssueKind = "balance_gap"
)

// ParseIssue records a row-level failure. Issues are collected, never raised.
type ParseIssue struct {
	Line   int       `json:"line"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (i ParseIssue) String() string {
	return fmt.Sprintf("line %d: %s: %s", i.Line, i.Kind, i.Detail)
}

// Document is the extracted content of one statement file.
type Document struct {
	Pages       []string
	RawText     string
	Fingerprint string // sha256 of the file bytes
}

// Lines returns every page line in order, trimmed of trailing whitespace.
func (d *Document) Lines() []string {
	var out []string
	for _, page := range d.Pages {
		for _, line := range strings.Split(page, "\n") {
			out = append(out, strings.TrimRight(line, " \t"))
		}
	}
	return out
}

// Account is one external financial source owned by the user.
type Account struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Alias         string         `gorm:"size:64" json:"alias"`
	Provider      ProviderFormat `gorm:"size:16;index" json:"provider"`
	AccountNumber string         `gorm:"size:32" json:"account_number"` // partial, as printed
	CreatedAt     time.Time      `json:"created_at"`
}

// Statement is one ingested document.
type Statement struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID `gorm:"type:uuid;index" json:"account_id"`
	Fingerprint  string    `gorm:"size:64;uniqueIndex" json:"fingerprint"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	TxnCount     int       `json:"txn_count"`
	QualityScore int       `json:"quality_score"`
	RawText      string    `gorm:"type:text" json:"-"` // audit/replay payload
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction is one ledger line.
type Transaction struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID         `gorm:"type:uuid;index:idx_txn_account_date" json:"account_id"`
	StatementID uuid.UUID         `gorm:"type:uuid;index" json:"statement_id"`
	Date        time.Time         `gorm:"index:idx_txn_account_date" json:"date"`
	Amount      float64           `json:"amount"`
	Balance     *float64          `json:"balance,omitempty"`
	Description string            `gorm:"type:text" json:"description"`
	Merchant    string            `gorm:"size:128" json:"merchant"`
	Category    Category          `gorm:"size:32" json:"category"`
	Reference   string            `gorm:"size:64;index" json:"reference,omitempty"`
	Fingerprint string            `gorm:"size:64;index" json:"fingerprint"`
	Status      TransactionStatus `gorm:"size:16;default:active" json:"status"`
	LinkedTo    *uuid.UUID        `gorm:"type:uuid" json:"linked_to,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// descPrefixLen is how much of the uppercased description feeds the
// content fingerprint. Long enough to separate merchants, short enough to
// survive trailing branch/terminal noise.
const descPrefixLen = 24

// ContentFingerprint derives the duplicate-detection hash for a ledger entry:
// sha256 of account, day-truncated date, amount, and the uppercased
// description prefix. Reference numbers are deliberately excluded so the
// fingerprint works for providers that do not print them.
func ContentFingerprint(accountID uuid.UUID, date time.Time, amount float64, description string) string {
	desc := strings.ToUpper(strings.TrimSpace(description))
	if len(desc) > descPrefixLen {
		desc = desc[:descPrefixLen]
	}
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		accountID, date.In(Manila).Format("2006-01-02"), amount, desc)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
}

// MerchantCorrection is one user-supplied (pattern -> merchant, category)
// rule. Corrections shadow the built-in seed table for the same pattern.
type MerchantCorrection struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Pattern   string    `gorm:"size:128;uniqueIndex" json:"pattern"` // stored normalized-uppercase
	Merchant  string    `gorm:"size:128" json:"merchant"`
	Category  Category  `gorm:"size:32" json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VerdictKind is the outcome of classifying one incoming record.
type VerdictKind string

const (
	VerdictUnique         VerdictKind = "unique"
	VerdictExactDuplicate VerdictKind = "exact_duplicate"
	VerdictNeedsReview    VerdictKind = "needs_review"
	VerdictTransfer       VerdictKind = "transfer"
)

// DuplicateVerdict is the classification of one record against the ledger.
type DuplicateVerdict struct {
	Kind       VerdictKind `json:"kind"`
	Confidence float64     `json:"confidence"`
	Signal     string      `json:"signal"` // "reference", "fingerprint", "window"
	ExistingID uuid.UUID   `json:"existing_id,omitempty"`
	IncomingID uuid.UUID   `json:"incoming_id,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// ReviewStatus tracks whether a flagged near-duplicate was resolved.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

// DuplicateReview is a persisted needs-review verdict awaiting a human call.
type DuplicateReview struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID  uuid.UUID    `gorm:"type:uuid;index" json:"account_id"`
	IncomingID uuid.UUID    `gorm:"type:uuid" json:"incoming_id"`
	ExistingID uuid.UUID    `gorm:"type:uuid" json:"existing_id"`
	Confidence float64      `json:"confidence"`
	Signal     string       `gorm:"size:16" json:"signal"`
	Status     ReviewStatus `gorm:"size:16;default:pending;index" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IngestResult summarizes one statement import.
type IngestResult struct {
	StatementID       uuid.UUID          `json:"statement_id"`
	AccountID         uuid.UUID          `json:"account_id"`
	Provider          ProviderFormat     `json:"provider"`
	AlreadyImported   bool               `json:"already_imported"`
	PeriodStart       time.Time          `json:"period_start"`
	PeriodEnd         time.Time          `json:"period_end"`
	Imported          int                `json:"imported"`
	QualityScore      int                `json:"quality_score"`
	QualityLevel      string             `json:"quality_level"`
	Issues            []ParseIssue       `json:"issues"`
	DuplicateWarnings []DuplicateVerdict `json:"duplicate_warnings"`
	Categorized       int                `json:"categorized"`
	TotalInflow       float64            `json:"total_inflow"`
	TotalOutflow      float64            `json:"total_outflow"`
}
