// Package message holds the submitted form payloads and renders them into
// WhatsApp-formatted text.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString accepts a JSON string, number or boolean and keeps its text.
// Website forms are inconsistent about quoting numeric fields.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected string or number, got %s", b[:1])
	}
	*f = FlexString(b)
	return nil
}

// String returns the raw text.
func (f FlexString) String() string { return string(f) }

// ContactInquiry is a tour contact form submission.
type ContactInquiry struct {
	Timestamp      string     `json:"timestamp,omitempty"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          FlexString `json:"phone,omitempty"`
	Country        string     `json:"country,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	Message        string     `json:"message,omitempty"`
	TravelStart    string     `json:"travel_start,omitempty"`
	TravelEnd      string     `json:"travel_end,omitempty"`
	Travelers      FlexString `json:"travelers,omitempty"`
	Newsletter     FlexString `json:"newsletter,omitempty"`
	Status         string     `json:"status,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	RecaptchaToken string     `json:"recaptcha_token,omitempty"`
}

// Lead is a landing page lead submission.
type Lead struct {
	Timestamp      string     `json:"timestamp,omitempty"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          FlexString `json:"phone,omitempty"`
	Message        string     `json:"message,omitempty"`
	Source         string     `json:"source,omitempty"`
	Interest       string     `json:"interest,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	RecaptchaToken string     `json:"recaptcha_token,omitempty"`
}

// OrderItem is one line of a shop order.
type OrderItem struct {
	Name     string     `json:"name"`
	Quantity FlexString `json:"quantity"`
	Price    FlexString `json:"price"`
}

// Order is a newly placed shop order.
type Order struct {
	OrderID       FlexString  `json:"orderId,omitempty"`
	ShopName      string      `json:"shopName,omitempty"`
	ContactNumber FlexString  `json:"contactNumber,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
	TotalPrice    FlexString  `json:"totalPrice,omitempty"`
}

// OrderCompletion marks an order as ready for collection.
type OrderCompletion struct {
	OrderID       FlexString `json:"orderId,omitempty"`
	ShopName      string     `json:"shopName,omitempty"`
	ContactNumber FlexString `json:"contactNumber,omitempty"`
	OrderDate     string     `json:"orderDate,omitempty"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	PaymentAmount FlexString `json:"paymentAmount,omitempty"`
}

// Direct is a free-text message to a single customer.
type Direct struct {
	ContactNumber FlexString `json:"contactNumber"`
	Message       string     `json:"message"`
	ShopName      string     `json:"shopName,omitempty"`
}
