package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesobook/pesobook/internal/models"
)

// MayaNormalizer handles Maya (formerly PayMaya) statement PDFs.
//
// Maya statements have this layout:
//
//	Date | Description | Reference | Type | Amount
//
// Date format: "Jan 2, 2006 15:04" (24-hour clock). The Type column is the
// literal word Debit or Credit, which carries the sign; there is no running
// balance column, so ReportsBalance is false and balance-based checks are
// skipped downstream.
// Example line: "Jan 15, 2024 20:23  Payment - Jollibee  MA7K2P91QX  Debit  285.00"
type MayaNormalizer struct{}

func (n *MayaNormalizer) Provider() models.ProviderFormat { return models.ProviderMaya }
func (n *MayaNormalizer) ProviderName() string            { return "Maya" }
func (n *MayaNormalizer) ReportsBalance() bool            { return false }

const mayaDateLayout = "Jan 2, 2006 15:04"

// Maya transaction line: DATE TIME  DESCRIPTION  REF(alphanumeric)  Debit|Credit  AMOUNT
var mayaTxnPattern = regexp.MustCompile(
	`^(` + monthAbbr + ` \d{1,2}, \d{4} \d{1,2}:\d{2})\s+(.+?)\s+([A-Z0-9]{8,16})\s+` +
		`(Debit|Credit)\s+(\(?[\d,]+\.\d{2}\)?)\s*$`,
)

var mayaDateStart = regexp.MustCompile(`^` + monthAbbr + ` \d{1,2}, \d{4} \d{1,2}:\d{2}\b`)

func (n *MayaNormalizer) Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue) {
	var records []models.Record
	var issues []models.ParseIssue
	inTable := false

	for i, raw := range doc.Lines() {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		if containsTableHeader(line) {
			inTable = true
			continue
		}
		if !inTable && !mayaDateStart.MatchString(line) {
			continue
		}
		inTable = true

		m := mayaTxnPattern.FindStringSubmatch(line)
		if m == nil {
			if mayaDateStart.MatchString(line) {
				issues = append(issues, models.ParseIssue{
					Line: i + 1, Kind: models.IssueMissingColumn,
					Detail: "transaction row missing type or amount column",
				})
				continue
			}
			if len(records) > 0 && !isSummaryLine(line) {
				records[len(records)-1].Description += " " + line
			}
			continue
		}

		date, err := parseStatementTime(mayaDateLayout, m[1])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadDate,
				Detail: fmt.Sprintf("unparseable date %q", m[1]),
			})
			continue
		}

		amt, err := parseAmount(m[5])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable amount %q", m[5]),
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

		amt = abs(amt)
		if m[4] == "Debit" {
			amt = -amt
		}

		records = append(records, models.Record{
			Date:        date,
			Amount:      amt,
			Description: strings.TrimSpace(m[2]),
			Reference:   m[3],
		})
	}

	return records, issues
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
