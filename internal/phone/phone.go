// Package phone normalizes customer and staff phone numbers into WhatsApp
// recipient identifiers.
package phone

import (
	"errors"
	"strings"
)

const (
	// DefaultCountryCode is prepended to local numbers (Sri Lanka).
	DefaultCountryCode = "94"

	// UserServer is the network suffix for individual WhatsApp accounts.
	UserServer = "s.whatsapp.net"
)

// ErrInvalidNumber is returned by Validate for numbers that cannot be a
// WhatsApp account.
var ErrInvalidNumber = errors.New("invalid id")

var stripper = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "", "+", "")

// Normalize removes spacing and punctuation from raw and makes sure the
// result carries countryCode. A leading trunk 0 is replaced by the country
// code; any other number without it gets it prepended.
func Normalize(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	clean := stripper.Replace(strings.TrimSpace(raw))
	if clean == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(clean, "0"):
		return countryCode + clean[1:]
	case !strings.HasPrefix(clean, countryCode):
		return countryCode + clean
	}
	return clean
}

// Validate checks that number is 7 to 15 ASCII digits.
func Validate(number string) error {
	if len(number) < 7 || len(number) > 15 {
		return ErrInvalidNumber
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return ErrInvalidNumber
		}
	}
	return nil
}

// Recipient turns a number into a recipient ID by appending the user server.
// Values that already carry a server part are returned unchanged.
func Recipient(number string) string {
	if strings.Contains(number, "@") {
		return number
	}
	return number + "@" + UserServer
}

// Recipients maps Recipient over numbers, dropping empty entries.
func Recipients(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, Recipient(n))
	}
	return out
}

// User returns the part of a recipient ID before the server suffix.
func User(recipient string) string {
	user, _, _ := strings.Cut(recipient, "@")
	return user
}
