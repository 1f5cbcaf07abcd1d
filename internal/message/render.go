package message

import (
	"fmt"
	"strings"
	"time"
)

const (
	notProvided  = "Not provided"
	notSpecified = "Not specified"

	dateTimeLayout = "January 2, 2006 at 03:04 PM"
	dateLayout     = "January 2, 2006"

	// TestText is the body of the connectivity test message.
	TestText = "Hello! This is a test message from the server."
)

// timestampLayouts are tried in order when parsing submitted timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Renderer turns form payloads into WhatsApp text. Times are shown in Location.
type Renderer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewRenderer returns a Renderer for loc. A nil loc means UTC.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Location: loc, Now: time.Now}
}

func (r *Renderer) parseTime(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(r.Location), true
		}
	}
	return time.Time{}, false
}

// formatTimestamp renders raw with layout. An empty raw renders the current
// time; an unparseable one is returned unchanged.
func (r *Renderer) formatTimestamp(raw, layout string) string {
	if strings.TrimSpace(raw) == "" {
		return r.Now().In(r.Location).Format(layout)
	}
	t, ok := r.parseTime(raw)
	if !ok {
		return raw
	}
	return t.Format(layout)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// line writes "<emoji> *<label>:* <value>\n".
func line(b *strings.Builder, emoji, label, value string) {
	fmt.Fprintf(b, "%s *%s:* %s\n", emoji, label, value)
}

// ContactInquiry renders a tour inquiry.
func (r *Renderer) ContactInquiry(c ContactInquiry) string {
	var b strings.Builder
	b.WriteString("*📋 New Tour Inquiry*\n\n")
	line(&b, "📅", "Date", r.formatTimestamp(c.Timestamp, dateTimeLayout))
	line(&b, "👤", "Name", orDefault(c.Name, notProvided))
	line(&b, "📧", "Email", orDefault(c.Email, notProvided))
	line(&b, "📱", "Phone", orDefault(c.Phone.String(), notProvided))
	line(&b, "🌍", "Country", orDefault(c.Country, notProvided))
	line(&b, "📌", "Subject", orDefault(c.Subject, notProvided))
	if c.Message != "" {
		line(&b, "💬", "Message", c.Message)
	}
	line(&b, "✈️", "Travel Start", orDefault(c.TravelStart, notSpecified))
	line(&b, "✈️", "Travel End", orDefault(c.TravelEnd, notSpecified))
	line(&b, "👥", "Number of Travelers", orDefault(c.Travelers.String(), notSpecified))
	line(&b, "📰", "Newsletter Subscription", orDefault(c.Newsletter.String(), "No"))
	line(&b, "📊", "Status", orDefault(c.Status, "new"))
	if c.IPAddress != "" {
		line(&b, "🌐", "IP Address", c.IPAddress)
	}
	if c.UserAgent != "" {
		line(&b, "🖥️", "User Agent", c.UserAgent)
	}
	return b.String()
}

// Lead renders a landing page lead.
func (r *Renderer) Lead(l Lead) string {
	var b strings.Builder
	b.WriteString("*🎯 New Lead from Landing Page*\n\n")
	line(&b, "📅", "Date", r.formatTimestamp(l.Timestamp, dateTimeLayout))
	line(&b, "👤", "Name", orDefault(l.Name, notProvided))
	line(&b, "📧", "Email", orDefault(l.Email, notProvided))
	line(&b, "📱", "Phone", orDefault(l.Phone.String(), notProvided))
	if l.Source != "" {
		line(&b, "🔗", "Source", l.Source)
	}
	if l.Interest != "" {
		line(&b, "💡", "Interest", l.Interest)
	}
	if l.Message != "" {
		line(&b, "💬", "Message", l.Message)
	}
	if l.IPAddress != "" {
		line(&b, "🌐", "IP Address", l.IPAddress)
	}
	if l.UserAgent != "" {
		line(&b, "🖥️", "User Agent", l.UserAgent)
	}
	return b.String()
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// OrderPlaced renders the order confirmation sent to the customer.
func (r *Renderer) OrderPlaced(o Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", o.ShopName)
	b.WriteString("📋 *Order Details*\n")
	fmt.Fprintf(&b, "Order ID: %s\n\n", o.OrderID)

	b.WriteString("🛒 *Items Ordered:*\n")
	b.WriteString("┌─────────────────────────────────┐\n")
	for i, item := range o.Items {
		fmt.Fprintf(&b, "│ Item-%02d │ %-18s │ %-3s │ %-8s │\n",
			i+1,
			truncate(item.Name, 15),
			"x"+item.Quantity.String(),
			"Rs."+item.Price.String(),
		)
	}
	b.WriteString("└─────────────────────────────────┘\n\n")
	fmt.Fprintf(&b, "💰 *Total Amount: Rs.%s*\n\n", o.TotalPrice)
	b.WriteString("Thank you for your order! 🙏 Will inform you through whatsapp when order is ready.")
	return b.String()
}

// OrderComplete renders the ready-for-collection notice.
func (r *Renderer) OrderComplete(c OrderCompletion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order from *%s* on %s is ready now.\n\n",
		c.ShopName, r.formatTimestamp(c.OrderDate, dateLayout))
	b.WriteString("Come to shop and collect the order.\n\n")
	if strings.EqualFold(c.PaymentStatus, "unpaid") {
		fmt.Fprintf(&b, "💰 Please pay the bill Rs.%s when collecting your order.", c.PaymentAmount)
	} else {
		b.WriteString("✅ Payment has been completed.")
	}
	return b.String()
}

// Direct renders a free-text message, headed by the shop name when given.
func (r *Renderer) Direct(d Direct) string {
	if d.ShopName == "" {
		return d.Message
	}
	return fmt.Sprintf("*%s*\n\n%s", d.ShopName, d.Message)
}
