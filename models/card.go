package models

import (
	"time"
)

// CardSource is the externally supplied card tokenization capability. The
// implementation encodes the card data with the terminal's public key and
// returns an opaque string suitable for the CardData request field.
type CardSource interface {
	Encode(publicKey string) (string, error)
}

// Card is one saved card as returned by GetCardList.
type Card struct {
	CardID   string        `json:"CardId"`
	Pan      string        `json:"Pan"`
	ExpDate  string        `json:"ExpDate"`
	CardType int           `json:"CardType"`
	RebillID string        `json:"RebillId,omitempty"`
	Status   PaymentStatus `json:"Status,omitempty"`
}

// CardData is raw card input collected by the caller. It never travels in
// clear text: a CardSource built from it encodes the data before dispatch.
type CardData struct {
	// Pan is the card number, digits only.
	Pan string
	// ExpDate is MM/YY.
	ExpDate string
	// SecurityCode is the CVV/CVC, 3 or 4 digits.
	SecurityCode string
}

// Validate checks the card fields the same way the payment form would before
// submission.
func (c CardData) Validate() error {
	if len(c.Pan) < 13 || len(c.Pan) > 19 {
		return &ConfigError{Field: "Pan", Reason: "card number must be 13-19 digits"}
	}
	if !validateLuhn(c.Pan) {
		return &ConfigError{Field: "Pan", Reason: "card number failed Luhn check"}
	}
	if len(c.SecurityCode) < 3 || len(c.SecurityCode) > 4 {
		return &ConfigError{Field: "SecurityCode", Reason: "security code must be 3 or 4 digits"}
	}
	if !validateExpiry(c.ExpDate) {
		return &ConfigError{Field: "ExpDate", Reason: "card is expired or the date is malformed"}
	}
	return nil
}

func validateLuhn(cardNumber string) bool {
	sum := 0
	isEven := len(cardNumber)%2 == 0

	for i, r := range cardNumber {
		digit := int(r - '0')

		if digit < 0 || digit > 9 {
			return false
		}

		if isEven == (i%2 == 0) {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}

	return sum%10 == 0
}

func validateExpiry(expiry string) bool {
	expiryTime, err := time.Parse("01/06", expiry)
	if err != nil {
		return false
	}

	// Last moment of the expiry month.
	expiryTime = time.Date(
		expiryTime.Year(),
		expiryTime.Month()+1,
		0,
		23,
		59,
		59,
		0,
		time.UTC,
	)

	return expiryTime.After(time.Now())
}
