package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesobook/pesobook/internal/models"
)

// GCashNormalizer handles GCash transaction-history PDF exports.
//
// GCash exports have this layout:
//
//	Date and Time | Description | Reference No. | Amount | Balance
//
// Date format: YYYY-MM-DD hh:mm AM/PM (12-hour clock).
// Example line: "2024-01-15 08:23 PM  Payment to JOLLIBEE MANILA INC  1002345678901  285.00  1,214.50"
//
// The amount column is unsigned; the export relies on the running balance
// to show direction, so the sign is resolved by balance progression.
type GCashNormalizer struct{}

func (n *GCashNormalizer) Provider() models.ProviderFormat { return models.ProviderGCash }
func (n *GCashNormalizer) ProviderName() string            { return "GCash" }
func (n *GCashNormalizer) ReportsBalance() bool            { return true }

const gcashDateLayout = "2006-01-02 03:04 PM"

// GCash transaction line: DATE TIME AM/PM  DESCRIPTION  REF(13 digits)  AMOUNT  BALANCE
var gcashTxnPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{1,2}:\d{2} (?:AM|PM))\s+(.+?)\s+(\d{13})\s+` +
		`(\(?[\d,]+\.\d{2}\)?)\s+([\d,]+\.\d{2})\s*$`,
)

// Lines that start like a transaction but don't match the full pattern.
var gcashDateStart = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{1,2}:\d{2} (?:AM|PM)\b`)

func (n *GCashNormalizer) Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue) {
	var records []models.Record
	var issues []models.ParseIssue
	inTable := false
	var lastBalance float64

	for i, raw := range doc.Lines() {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		if containsTableHeader(line) {
			inTable = true
			continue
		}
		if !inTable && !gcashDateStart.MatchString(line) {
			continue
		}
		inTable = true

		m := gcashTxnPattern.FindStringSubmatch(line)
		if m == nil {
			if gcashDateStart.MatchString(line) {
				issues = append(issues, models.ParseIssue{
					Line: i + 1, Kind: models.IssueBadAmount,
					Detail: "transaction row did not match expected columns",
				})
				continue
			}
			// Continuation of the previous description.
			if len(records) > 0 && !isSummaryLine(line) {
				records[len(records)-1].Description += " " + line
			}
			continue
		}

		date, err := parseStatementTime(gcashDateLayout, m[1])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadDate,
				Detail: fmt.Sprintf("unparseable date %q", m[1]),
			})
			continue
		}

		amt, err := parseAmount(m[4])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable amount %q", m[4]),
			})
			continue
		}
		if amt == 0 {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueZeroAmount,
				Detail: "zero-amount row dropped as parse artifact",
			})
			continue
		}

		bal, err := parseAmount(m[5])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable balance %q", m[5]),
			})
			continue
		}

		desc := strings.TrimSpace(m[2])
		signed := amt
		if signed > 0 {
			signed = resolveSign(amt, bal, lastBalance, desc)
		}
		lastBalance = bal
		balCopy := bal

		records = append(records, models.Record{
			Date:        date,
			Amount:      signed,
			Description: desc,
			Balance:     &balCopy,
			Reference:   m[3],
		})
	}

	return records, issues
}
