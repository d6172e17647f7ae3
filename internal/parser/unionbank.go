package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesobook/pesobook/internal/models"
)

// UnionBankNormalizer handles UnionBank of the Philippines statements.
//
// UnionBank statements have this layout:
//
//	Date | Reference | Description | Amount | Balance
//
// Date format: "02 Jan 2006". The amount column is signed: outflows carry a
// leading minus. The reference is a numeric transaction ID.
// Example line: "15 Jan 2024  240115001234  InstaPay to J DELA CRUZ  -500.00  12,340.00"
type UnionBankNormalizer struct{}

func (n *UnionBankNormalizer) Provider() models.ProviderFormat { return models.ProviderUnionBank }
func (n *UnionBankNormalizer) ProviderName() string            { return "UnionBank" }
func (n *UnionBankNormalizer) ReportsBalance() bool            { return true }

const unionBankDateLayout = "02 Jan 2006"

// UnionBank transaction line: DD Mon YYYY  REF(numeric)  DESCRIPTION  ±AMOUNT  BALANCE
var unionBankTxnPattern = regexp.MustCompile(
	`^(\d{2} ` + monthAbbr + ` \d{4})\s+(\d{9,14})\s+(.+?)\s+(-?[\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`,
)

var unionBankDateStart = regexp.MustCompile(`^\d{2} ` + monthAbbr + ` \d{4}\b`)

func (n *UnionBankNormalizer) Normalize(doc *models.Document) ([]models.Record, []models.ParseIssue) {
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
		if !inTable && !unionBankDateStart.MatchString(line) {
			continue
		}
		inTable = true

		m := unionBankTxnPattern.FindStringSubmatch(line)
		if m == nil {
			if unionBankDateStart.MatchString(line) {
				issues = append(issues, models.ParseIssue{
					Line: i + 1, Kind: models.IssueMissingColumn,
					Detail: "transaction row missing reference or amount column",
				})
				continue
			}
			if len(records) > 0 && !isSummaryLine(line) {
				records[len(records)-1].Description += " " + line
			}
			continue
		}

		date, err := parseStatementTime(unionBankDateLayout, m[1])
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
		balCopy := bal

		records = append(records, models.Record{
			Date:        date,
			Amount:      amt,
			Description: strings.TrimSpace(m[3]),
			Balance:     &balCopy,
			Reference:   m[2],
		})
	}

	return records, issues
}
