package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesobook/pesobook/internal/models"
)

// BDONormalizer handles BDO Unibank account statements.
//
// BDO statements have this layout:
//
//	Date | Description | Amount | Balance
//
// Date format: MM/DD/YYYY. Outflows are printed as parenthesized amounts,
// e.g. "(1,250.00)", so no balance reconciliation is needed for the sign.
// Example line: "01/15/2024  POS JOLLIBEE MAKATI  (285.00)  1,214.50"
type BDONormalizer struct{}

func (n *BDONormalizer) Provider() models.ProviderFormat { return models.ProviderBDO }
func (n *BDONormalizer) ProviderName() string            { return "BDO" }
func (n *BDONormalizer) ReportsBalance() bool            { return true }

const bdoDateLayout = "01/02/2006"

// BDO transaction line: MM/DD/YYYY  DESCRIPTION  AMOUNT-or-(AMOUNT)  BALANCE
var bdoTxnPattern = regexp.MustCompile(
	`^(\d{2}/\d{2}/\d{4})\s+(.+?)\s+(\(?[\d,]+\.\d{2}\)?)\s+([\d,]+\.\d{2})\s*$`,
)

var bdoDateStart = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\b`)

func (n *BDONormalizer) Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue) {
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
		if !inTable && !bdoDateStart.MatchString(line) {
			continue
		}
		inTable = true

		m := bdoTxnPattern.FindStringSubmatch(line)
		if m == nil {
			if bdoDateStart.MatchString(line) {
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

		date, err := parseStatementTime(bdoDateLayout, m[1])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadDate,
				Detail: fmt.Sprintf("unparseable date %q", m[1]),
			})
			continue
		}

		amt, err := parseAmount(m[3])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable amount %q", m[3]),
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

		bal, err := parseAmount(m[4])
		if err != nil {
			issues = append(issues, models.ParseIssue{
				Line: i + 1, Kind: models.IssueBadAmount,
				Detail: fmt.Sprintf("unparseable balance %q", m[4]),
			})
			continue
		}
		balCopy := bal

		records = append(records, models.Record{
			Date:        date,
			Amount:      amt,
			Description: strings.TrimSpace(m[2]),
			Balance:     &balCopy,
		})
	}

	return records, issues
}
