package mpesa

import (
	"regexp"
	"strings"
	"time"

	"github.com/mzalendo/chama-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Confirmation messages are semi-structured prose, e.g.
//
//	TAJ1RBVSYF Confirmed. You have received Ksh1,000.00 from JOHN DOE 0722000000 on 19/1/24 at 4:37 PM
//
// Each field is matched independently; a message that fails any one of the
// four patterns is rejected as a whole.
var (
	transactionIDPattern = regexp.MustCompile(`\b[A-Z0-9]{8,12}\b`)
	amountPattern        = regexp.MustCompile(`(?i)(?:ksh|kes)\.?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	phonePattern         = regexp.MustCompile(`(?:\+?254|0)[17][0-9]{8}\b`)
	// Sender names in confirmation messages are uppercase spans between the
	// "from" trigger and the phone number. Lowercase names do not match.
	namePattern = regexp.MustCompile(`(?i:received from|from)\s+([A-Z][A-Z ]+)\s+(?:\+?254|0)[17][0-9]{8}\b`)
)

// Parser extracts structured transaction records from mobile-money
// confirmation messages.
type Parser struct {
	now func() time.Time
}

// New creates a new confirmation message parser
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock creates a parser with an explicit clock. The clock supplies
// the record date, which is never read from the message text.
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Parse extracts a complete transaction record from a confirmation message.
// It returns ok=false if any of the transaction id, amount, phone number or
// sender name cannot be found; it never returns a partial record.
func (p *Parser) Parse(message string) (*types.ParsedConfirmation, bool) {
	txID := transactionIDPattern.FindString(message)
	if txID == "" {
		return nil, false
	}

	amountMatch := amountPattern.FindStringSubmatch(message)
	if amountMatch == nil {
		return nil, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountMatch[1], ",", ""))
	if err != nil || !amount.IsPositive() {
		return nil, false
	}

	phone := phonePattern.FindString(message)
	if phone == "" {
		return nil, false
	}

	nameMatch := namePattern.FindStringSubmatch(message)
	if nameMatch == nil {
		return nil, false
	}

	return &types.ParsedConfirmation{
		TransactionID:   txID,
		Amount:          amount,
		ContributorName: strings.TrimSpace(nameMatch[1]),
		PhoneNumber:     phone,
		Date:            p.now(),
	}, true
}
