// Package parser classifies statement documents into provider formats and
// normalizes their rows into ledger records. One normalizer per provider;
// all share the same output contract so the rest of the pipeline is
// format-agnostic.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pesobook/pesobook/internal/models"
)

// Normalizer converts extracted statement text into normalized records.
type Normalizer interface {
	// Provider returns the format this normalizer handles.
	Provider() models.ProviderFormat
	// ProviderName returns the human-readable institution name.
	ProviderName() string
	// ReportsBalance says whether this provider prints a running balance.
	ReportsBalance() bool
	// Normalize parses the document rows. Rows that fail date or amount
	// parsing are dropped and recorded as issues, never partially emitted.
	Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue)
}

// ErrUnknownFormat means no provider marker matched the document text.
var ErrUnknownFormat = errors.New("could not detect statement provider; specify one explicitly")

// ErrUnsupportedProvider means the caller named a provider that is not in
// the format enum. User input, not a pipeline failure.
var ErrUnsupportedProvider = errors.New("unsupported provider format")

// NoExportError identifies a provider the user asked about that exists but
// publishes no machine-parseable statement export. It is user-facing
// guidance, not a generic failure.
type NoExportError struct {
	Provider models.ProviderFormat
}

func (e *NoExportError) Error() string {
	return fmt.Sprintf("%s has no statement export; transactions from this wallet cannot be imported", providerLabel(e.Provider))
}

func providerLabel(p models.ProviderFormat) string {
	if n, err := New(p); err == nil {
		return n.ProviderName()
	}
	switch p {
	case models.ProviderGrabPay:
		return "GrabPay"
	default:
		return string(p)
	}
}

// New returns the normalizer for the given provider format.
func New(format models.ProviderFormat) (Normalizer, error) {
	switch format {
	case models.ProviderGCash:
		return &GCashNormalizer{}, nil
	case models.ProviderMaya:
		return &MayaNormalizer{}, nil
	case models.ProviderBPI:
		return &BPINormalizer{}, nil
	case models.ProviderBDO:
		return &BDONormalizer{}, nil
	case models.ProviderUnionBank:
		return &UnionBankNormalizer{}, nil
	case models.ProviderGrabPay:
		return nil, &NoExportError{Provider: models.ProviderGrabPay}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, format)
	}
}

// detection markers, checked in priority order; first match wins.
// E-wallets come first: their exports sometimes mention partner banks in
// transaction rows, never the other way around.
var detectOrder = []struct {
	format  models.ProviderFormat
	markers []string
}{
	{models.ProviderGCash, []string{"GCash Transaction History", "G-XCHANGE"}},
	{models.ProviderMaya, []string{"Maya Bank", "PayMaya Philippines", "Maya Statement"}},
	{models.ProviderGrabPay, []string{"GrabPay Wallet", "Grab Financial"}},
	{models.ProviderBPI, []string{"Bank of the Philippine Islands", "BPI Direct", "bpi.com.ph"}},
	{models.ProviderBDO, []string{"BDO Unibank", "BDO ONLINE", "bdo.com.ph"}},
	{models.ProviderUnionBank, []string{"Union Bank of the Philippines", "UnionBank", "unionbankph.com"}},
}

// Detect identifies the statement provider from the extracted page text by
// scanning for provider-identifying markers in priority order. Returns
// *NoExportError for providers that are recognized but have no parseable
// export, and ErrUnknownFormat when nothing matches. No side effects.
func Detect(pages []string) (models.ProviderFormat, error) {
	combined := strings.ToLower(strings.Join(pages, "\n"))
	for _, entry := range detectOrder {
		for _, marker := range entry.markers {
			if strings.Contains(combined, strings.ToLower(marker)) {
				if entry.format == models.ProviderGrabPay {
					return models.ProviderUnknown, &NoExportError{Provider: models.ProviderGrabPay}
				}
				return entry.format, nil
			}
		}
	}
	return models.ProviderUnknown, ErrUnknownFormat
}

// StatementMeta is account/period metadata scraped from the document.
type StatementMeta struct {
	AccountNumber string
	Holder        string
	PeriodStart   time.Time
	PeriodEnd     time.Time
}
