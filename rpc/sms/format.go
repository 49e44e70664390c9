package sms

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses a phone number, using regionHint for numbers without a country code,
// and formats it as E.164. Numbers outside the ranges assigned in the region are kept;
// only input that does not parse as a number is rejected.
func Normalize(phoneNumber string, regionHint string) (string, error) {
	num, err := phonenumbers.ParseAndKeepRawInput(phoneNumber, regionHint)
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
