package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pesobook/pesobook/internal/models"
)

// monthAbbr is shared by every date pattern that spells out the month.
const monthAbbr = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`

// parseAmount converts a string like "1,234.56", "₱1,234.56", "PHP 120.00"
// or "(1,250.00)" to a float64. Parenthesized values are negative.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "₱", "")
	s = strings.ReplaceAll(s, "\u20B1", "") // escaped peso from some extractors
	s = strings.ReplaceAll(s, "PHP", "")
	s = strings.ReplaceAll(s, "Php", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "") // non-breaking space

	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty amount")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		v = -v
	}
	return v, nil
}

// parseStatementTime parses a provider timestamp in the fixed Manila zone.
// ParseInLocation keeps fingerprints identical across host timezones.
func parseStatementTime(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(value), models.Manila)
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "​", "")
	line = strings.ReplaceAll(line, " ", " ")
	return strings.TrimSpace(line)
}

// resolveSign decides whether an unsigned amount is an outflow or inflow by
// comparing the row balance against the previous running balance. Falls
// back to a description heuristic when no usable balance is available.
func resolveSign(amt, bal, prevBal float64, desc string) float64 {
	if prevBal != 0 {
		debitDiff := math.Abs((prevBal - amt) - bal)
		creditDiff := math.Abs((prevBal + amt) - bal)

		if debitDiff < 0.015 && creditDiff >= 0.015 {
			return -amt
		}
		if creditDiff < 0.015 && debitDiff >= 0.015 {
			return amt
		}
		if debitDiff < 0.015 && creditDiff < 0.015 {
			if debitDiff <= creditDiff {
				return -amt
			}
			return amt
		}
	}
	if isOutflowDescription(desc) {
		return -amt
	}
	return amt
}

func isOutflowDescription(desc string) bool {
	lower := strings.ToLower(desc)
	outflowKeywords := []string{
		"payment", "purchase", "withdraw", "cash out", "send money",
		"sent to", "transfer to", "bills pay", "billspay", "pos ",
		"atm ", "debit", "fee", "charge", "load",
	}
	for _, kw := range outflowKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	summaryKeywords := []string{
		"opening balance", "closing balance", "beginning balance",
		"ending balance", "total debit", "total credit", "total amount",
		"statement period", "page ", "continued", "end of statement",
		"this is a system-generated",
	}
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// containsTableHeader detects the start of the transaction table.
func containsTableHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "description") || strings.Contains(lower, "details") ||
			strings.Contains(lower, "transaction") || strings.Contains(lower, "particulars")) &&
		(strings.Contains(lower, "amount") || strings.Contains(lower, "debit") ||
			strings.Contains(lower, "balance") || strings.Contains(lower, "credit"))
}

// Account-number shapes seen in PH statements: masked card/account tails,
// grouped bank account numbers, and e-wallet mobile numbers.
var (
	maskedAcctPattern  = regexp.MustCompile(`[X*•]{2,}[- ]?(\d{4})\b`)
	groupedAcctPattern = regexp.MustCompile(`\b(\d{4})[- ](\d{4})[- ](\d{4})\b`)
	mobileAcctPattern  = regexp.MustCompile(`\b(09\d{2})[- ]?(\d{3})[- ]?(\d{4})\b`)
)

func findAccountNumber(text string) string {
	if m := groupedAcctPattern.FindString(text); m != "" {
		return m
	}
	if m := mobileAcctPattern.FindString(text); m != "" {
		return strings.NewReplacer(" ", "", "-", "").Replace(m)
	}
	if m := maskedAcctPattern.FindStringSubmatch(text); m != nil {
		return "****" + m[1]
	}
	return ""
}

func findHolderName(text string) string {
	labels := []string{"Account Name", "Account Holder", "Registered Name", "Customer Name"}
	for _, line := range strings.Split(text, "\n") {
		for _, label := range labels {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(line[idx+len(label):])
			rest = strings.TrimPrefix(rest, ":")
			rest = strings.TrimSpace(rest)
			if rest != "" {
				// Trim trailing columns glued onto the same row.
				parts := strings.Split(rest, "  ")
				return strings.TrimSpace(parts[0])
			}
		}
	}
	return ""
}

var periodDatePattern = regexp.MustCompile(
	`(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|` + monthAbbr + `[a-z]*\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+` + monthAbbr + `[a-z]*\s+\d{4})`)

// periodLayouts are tried in order against each date found on a period line.
var periodLayouts = []string{
	"2006-01-02", "01/02/2006", "1/2/2006",
	"January 2, 2006", "Jan 2, 2006", "January 2 2006",
	"2 January 2006", "02 Jan 2006", "2 Jan 2006",
}

// ExtractMeta scrapes account and period metadata from the document text.
// Best effort: any field may come back zero; the caller falls back to
// record-derived values (period from min/max record dates).
func ExtractMeta(doc *models.Document) StatementMeta {
	meta := StatementMeta{
		AccountNumber: findAccountNumber(doc.RawText),
		Holder:        findHolderName(doc.RawText),
	}

	for _, line := range strings.Split(doc.RawText, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "statement period") && !strings.Contains(lower, "period covered") {
			continue
		}
		dates := periodDatePattern.FindAllString(line, 2)
		if len(dates) != 2 {
			continue
		}
		start, okStart := tryPeriodLayouts(dates[0])
		end, okEnd := tryPeriodLayouts(dates[1])
		if okStart && okEnd && !end.Before(start) {
			meta.PeriodStart = start
			meta.PeriodEnd = end
			break
		}
	}
	return meta
}

func tryPeriodLayouts(s string) (time.Time, bool) {
	for _, layout := range periodLayouts {
		if t, err := parseStatementTime(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
