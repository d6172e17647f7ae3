// Package category normalizes merchant text and assigns spending
// categories. Lookups are layered: user corrections shadow the embedded
// seed table, and anything unmatched falls back to the cleaned raw text
// with the uncategorized sentinel. Categorization never errors.
package category

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pesobook/pesobook/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Mappings []seedEntry `yaml:"mappings"`
}

type seedEntry struct {
	Pattern  string `yaml:"pattern"`
	Merchant string `yaml:"merchant"`
	Category string `yaml:"category"`
}

// Mapping is one resolved (merchant, category) pair.
type Mapping struct {
	Merchant string
	Category models.Category
}

// Result of categorizing one description.
type Result struct {
	Merchant string
	Category models.Category
	// Matched is false when the fallback produced the result.
	Matched bool
}

// Legal-entity and locale suffixes stripped before lookup. Matched as
// whole trailing words, repeatedly, so "JOLLIBEE MANILA INC" reduces to
// "JOLLIBEE".
var suffixPattern = regexp.MustCompile(
	`\s+(?:INC|INCORPORATED|CORP|CORPORATION|CO|COMPANY|OPC|LTD|LLC|` +
		`PHILS|PHILIPPINES|PH|INTL|INTERNATIONAL|` +
		`MANILA|MAKATI|QUEZON CITY|QC|CEBU|DAVAO|TAGUIG|PASIG|BGC)\.?$`)

// Leading transaction-channel noise that precedes the merchant name.
var prefixPattern = regexp.MustCompile(
	`^(?:POS\s+(?:PURCHASE\s+)?|PAYMENT\s+(?:TO|-)\s+|PURCHASE\s+(?:AT\s+)?|DEBIT\s+CARD\s+)`)

// Normalize uppercases a raw description and strips channel prefixes,
// legal/locale suffixes, and trailing reference digits.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = prefixPattern.ReplaceAllString(s, "")
	for {
		next := suffixPattern.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimRight(s, " -#0123456789")
	return strings.TrimSpace(s)
}

// Engine answers lookups from an in-memory copy of both tiers. Reads are
// per-row on every ingestion, so both tables stay resident; corrections
// are refreshed through AddCorrection after the store commit.
type Engine struct {
	mu          sync.RWMutex
	seed        []seedEntry
	corrections map[string]Mapping // keyed by normalized pattern
}

// NewEngine parses the embedded seed table and loads the persisted
// corrections. A malformed seed table is a build defect, not a runtime
// condition, so it fails construction.
func NewEngine(corrections []models.MerchantCorrection) (*Engine, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parsing embedded seed table: %w", err)
	}
	for i, m := range f.Mappings {
		if _, ok := models.ParseCategory(m.Category); !ok {
			return nil, fmt.Errorf("seed table entry %d: unknown category %q", i, m.Category)
		}
	}

	e := &Engine{
		seed:        f.Mappings,
		corrections: make(map[string]Mapping, len(corrections)),
	}
	for _, c := range corrections {
		e.corrections[Normalize(c.Pattern)] = Mapping{Merchant: c.Merchant, Category: c.Category}
	}
	return e, nil
}

// Categorize resolves a raw description to (merchant, category).
// Corrections are consulted before the seed table; within a tier an exact
// match on the normalized text wins over a substring match. Unmatched text
// comes back cleaned with the uncategorized sentinel, never an error.
func (e *Engine) Categorize(raw string) Result {
	norm := Normalize(raw)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if m, ok := e.corrections[norm]; ok {
		return Result{Merchant: m.Merchant, Category: m.Category, Matched: true}
	}
	// Substring fallback: the longest matching pattern wins, ties broken
	// lexically, so the outcome never depends on map iteration order.
	var bestPattern string
	for pattern := range e.corrections {
		if pattern == "" || !strings.Contains(norm, pattern) {
			continue
		}
		if len(pattern) > len(bestPattern) ||
			(len(pattern) == len(bestPattern) && pattern < bestPattern) {
			bestPattern = pattern
		}
	}
	if bestPattern != "" {
		m := e.corrections[bestPattern]
		return Result{Merchant: m.Merchant, Category: m.Category, Matched: true}
	}

	for _, s := range e.seed {
		if s.Pattern == norm {
			cat, _ := models.ParseCategory(s.Category)
			return Result{Merchant: s.Merchant, Category: cat, Matched: true}
		}
	}
	for _, s := range e.seed {
		if strings.Contains(norm, s.Pattern) {
			cat, _ := models.ParseCategory(s.Category)
			return Result{Merchant: s.Merchant, Category: cat, Matched: true}
		}
	}

	merchant := norm
	if merchant == "" {
		merchant = strings.TrimSpace(raw)
	}
	return Result{Merchant: merchant, Category: models.CategoryUncategorized}
}

// AddCorrection installs or replaces one correction in the in-memory
// tier. Called after the store has committed the mapping write so the
// cache never runs ahead of durable state.
func (e *Engine) AddCorrection(pattern, merchant string, cat models.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.corrections[Normalize(pattern)] = Mapping{Merchant: merchant, Category: cat}
}

// CorrectionCount reports the size of the user tier.
func (e *Engine) CorrectionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.corrections)
}
