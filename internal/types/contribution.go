package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionSource identifies where a contribution record came from
type ContributionSource string

const (
	SourceConfirmation ContributionSource = "confirmation"
	SourceReceipt      ContributionSource = "receipt"
)

// ParsedConfirmation is a fully extracted mobile-money confirmation message.
// Every field is populated; a message that cannot fill all of them does not
// produce a ParsedConfirmation at all.
type ParsedConfirmation struct {
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	ContributorName string          `json:"contributor_name"`
	PhoneNumber     string          `json:"phone_number"`
	Date            time.Time       `json:"date"`
}

// ReceiptData is the best-effort result of extracting a receipt from OCR
// text. Description is always set; the remaining fields are populated
// independently and may all be absent.
type ReceiptData struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Description string           `json:"description"`
	FoundName   string           `json:"found_name,omitempty"`
}

// Contribution is a bookkeeping entry derived from a confirmation message or
// a scanned receipt
type Contribution struct {
	TransactionID string             `json:"transaction_id"`
	Contributor   string             `json:"contributor"`
	PhoneNumber   string             `json:"phone_number,omitempty"`
	Amount        decimal.Decimal    `json:"amount"`
	Fee           decimal.Decimal    `json:"fee"`
	Source        ContributionSource `json:"source"`
	Description   string             `json:"description,omitempty"`
	Date          time.Time          `json:"date"`
}

// Member is a roster entry for a group member
type Member struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}
