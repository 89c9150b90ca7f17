package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mzalendo/chama-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// descriptionLimit caps the fallback summary taken from the raw OCR text.
const descriptionLimit = 100

var (
	// A currency code or amount keyword immediately followed by a number,
	// e.g. "Total Amount: KES 2,450.00" or "Paid 500".
	keywordAmountPattern = regexp.MustCompile(`(?i)(?:kes|ksh|amount|paid|total)\.?:?\s*(?:kes|ksh)?\.?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	// A bare token that looks like a money amount: nonzero leading digit,
	// optional thousands separators, optional two decimal places.
	moneyTokenPattern = regexp.MustCompile(`\b[1-9][0-9]{0,2}(?:,?[0-9]{3})*(?:\.[0-9]{2})?\b`)

	numericDatePattern = regexp.MustCompile(`\b([0-9]{1,2})[/.\-]([0-9]{1,2})[/.\-]([0-9]{2,4})\b`)
	textualDatePattern = regexp.MustCompile(`(?i)\b([0-9]{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+([0-9]{2,4})\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Extract pulls whatever it can out of raw OCR text. It never fails: each
// field is extracted independently and left absent when nothing usable is
// found. knownNames is an ordered roster; the first entry found as a
// case-insensitive substring of the text wins.
func Extract(text string, knownNames []string) types.ReceiptData {
	data := types.ReceiptData{
		Description: truncate(text, descriptionLimit),
	}

	if amount, ok := extractAmount(text); ok {
		data.Amount = &amount
	}
	if date, ok := extractDate(text); ok {
		data.Date = &date
	}
	data.FoundName = findKnownName(text, knownNames)

	return data
}

// extractAmount prefers a keyword-prefixed amount. Failing that, it falls
// back to the numerically largest money-looking token, on the assumption
// that receipts list line items below a larger total.
func extractAmount(text string) (decimal.Decimal, bool) {
	if m := keywordAmountPattern.FindStringSubmatch(text); m != nil {
		if amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			return amount, true
		}
	}

	var largest decimal.Decimal
	found := false
	for _, token := range moneyTokenPattern.FindAllString(text, -1) {
		amount, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
		if err != nil {
			continue
		}
		if !found || amount.GreaterThan(largest) {
			largest = amount
			found = true
		}
	}
	return largest, found
}

// extractDate returns the first date-looking token in the text, numeric
// (19/1/24, 19-01-2024, 19.1.24) or textual (19 Jan 2024). A token that does
// not form a valid calendar date is treated as no match.
func extractDate(text string) (time.Time, bool) {
	numericLoc := numericDatePattern.FindStringSubmatchIndex(text)
	textualLoc := textualDatePattern.FindStringSubmatchIndex(text)

	// Earliest match in the text wins when both forms are present.
	if numericLoc != nil && (textualLoc == nil || numericLoc[0] <= textualLoc[0]) {
		day := text[numericLoc[2]:numericLoc[3]]
		month := text[numericLoc[4]:numericLoc[5]]
		year := text[numericLoc[6]:numericLoc[7]]
		return buildDate(day, monthNumber(month), year)
	}
	if textualLoc != nil {
		day := text[textualLoc[2]:textualLoc[3]]
		month := text[textualLoc[4]:textualLoc[5]]
		year := text[textualLoc[6]:textualLoc[7]]
		return buildDate(day, monthsByPrefix[strings.ToLower(month)], year)
	}
	return time.Time{}, false
}

func monthNumber(s string) time.Month {
	n := atoi(s)
	if n < 1 || n > 12 {
		return 0
	}
	return time.Month(n)
}

func buildDate(dayStr string, month time.Month, yearStr string) (time.Time, bool) {
	if month == 0 {
		return time.Time{}, false
	}
	day := atoi(dayStr)
	year := atoi(yearStr)
	if year < 100 {
		year += 2000
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components (e.g. 31 Feb becomes
	// 2 Mar); a date that does not round-trip was not a real date.
	if date.Day() != day || date.Month() != month || date.Year() != year {
		return time.Time{}, false
	}
	return date, true
}

func findKnownName(text string, knownNames []string) string {
	lower := strings.ToLower(text)
	for _, name := range knownNames {
		if name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// atoi is safe here: every input is a digit-only regex capture.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
