package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesobook/pesobook/internal/models"
)

// BPINormalizer handles Bank of the Philippine Islands account statements.
//
// BPI statements have this layout:
//
//	Date | Description | Debit | Credit | Balance
//
// Date format: "January 2, 2006" (full month name). Exactly one of the
// Debit/Credit columns is populated per row; when column alignment is lost
// in extraction and only one amount survives next to the balance, the sign
// is recovered from the balance progression.
// Example line: "January 15, 2024  POS PURCHASE JOLLIBEE  285.00    1,214.50"
type BPINormalizer struct{}

func (n *BPINormalizer) Provider() models.ProviderFormat { return models.ProviderBPI }
func (n *BPINormalizer) ProviderName() string            { return "BPI" }
func (n *BPINormalizer) ReportsBalance() bool            { return true }

const bpiDateLayout = "January 2, 2006"

const bpiMonthFull = `(?:January|February|March|April|May|June|July|August|September|October|November|December)`

// Two amounts before the balance: debit and credit columns both present.
var bpiTwoColPattern = regexp.MustCompile(
	`^(` + bpiMonthFull + ` \d{1,2}, \d{4})\s+(.+?)\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`,
)

// One amount before the balance: collapsed debit-or-credit column.
var bpiOneColPattern = regexp.MustCompile(
	`^(` + bpiMonthFull + ` \d{1,2}, \d{4})\s+(.+?)\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`,
)

var bpiDateStart = regexp.MustCompile(`^` + bpiMonthFull + ` \d{1,2}, \d{4}\b`)

func (n *BPINormalizer) Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue) {
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
		if !inTable && !bpiDateStart.MatchString(line) {
			continue
		}
		inTable = true

		var date string
		var desc string
		var amtStr string
		var balStr string
		twoCol := false

		if m := bpiTwoColPattern.FindStringSubmatch(line); m != nil {
			// Row shows both columns; the populated one is non-zero. The
			// extractor collapses empties, so in practice one is 0.00.
			date, desc, balStr = m[1], m[2], m[5]
			debit, dErr := parseAmount(m[3])
			credit, cErr := parseAmount(m[4])
			if dErr == nil && cErr == nil {
				twoCol = true
				if debit > 0 && credit == 0 {
					amtStr = "-" + m[3]
				} else if credit > 0 && debit == 0 {
					amtStr = m[4]
				} else {
					twoCol = false
					amtStr = m[3] // ambiguous; fall through to balance check
				}
			}
		} else if m := bpiOneColPattern.FindStringSubmatch(line); m != nil {
			date, desc, amtStr, balStr = m[1], m[2], m[3], m[4]
		} else {
			if bpiDateStart.MatchString(line) {
				issues = append(issues, models.ParseIssue{
					Line: i + 1, Kind: models.IssueMissingColumn,
					Detail: "transaction row missing amount or balance column",
				})
				continue
			}
			if len(records) > 0 && !isSummaryLine(line) {
				records[len(records)-1].Description += " " + line
			}
			continue
		}

		when, err := parseStatementTime(bpiDateLayout, date)
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadDate,
				Detail: fmt.Sprintf("unparseable date %q", date),
			})
			continue
		}

		amt, err := parseAmount(amtStr)
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable amount %q", amtStr),
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

		bal, err := parseAmount(balStr)
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable balance %q", balStr),
			})
			continue
		}

		desc = strings.TrimSpace(desc)
		if !twoCol && amt > 0 {
			amt = resolveSign(amt, bal, lastBalance, desc)
		}
		lastBalance = bal
		balCopy := bal

		records = append(records, models.Record{
			Date:        when,
			Amount:      amt,
			Description: desc,
			Balance:     &balCopy,
		})
	}

	return records, issues
}
