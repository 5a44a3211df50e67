package notify

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const rule = "━━━━━━━━━━━━━━━━━━━━"

// Render turns an event into the Markdown chat message shown to the shop owner.
func Render(e Event) (string, error) {
	switch e.Kind {
	case OrderCreated, OrderDelivered:
		p, ok := orderPayload(e.Payload)
		if !ok {
			return "", fmt.Errorf("notify: %s event without order payload", e.Kind)
		}
		return renderOrder(e.Kind, p), nil
	case PaymentReceived:
		p, ok := paymentPayload(e.Payload)
		if !ok {
			return "", fmt.Errorf("notify: %s event without payment payload", e.Kind)
		}
		return renderPayment(p, e.OccurredAt), nil
	case ManualDebtAdded:
		p, ok := manualDebtPayload(e.Payload)
		if !ok {
			return "", fmt.Errorf("notify: %s event without debt payload", e.Kind)
		}
		return renderManualDebt(p, e.OccurredAt), nil
	}
	return "", fmt.Errorf("notify: unknown event kind %q", e.Kind)
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func shortID(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func stamp(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}

func renderOrder(kind Kind, p *OrderPayload) string {
	var b strings.Builder
	if kind == OrderDelivered {
		b.WriteString("✅ *Order delivered*\n\n")
	} else {
		b.WriteString("🔔 *New order placed*\n\n")
	}
	fmt.Fprintf(&b, "📋 Order #%s\n", shortID(p.OrderID))
	if p.ShopName != "" {
		fmt.Fprintf(&b, "🏪 Shop: %s\n", esc(p.ShopName))
	}
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "👤 Agent: %s\n", esc(p.Actor.Name))
	fmt.Fprintf(&b, "📞 Phone: %s\n\n", esc(p.Actor.Phone))

	units := 0
	for _, it := range p.Items {
		units += it.Quantity
	}
	fmt.Fprintf(&b, "📦 Items (%d units):\n", units)
	for i, it := range p.Items {
		fmt.Fprintf(&b, "%d. *%s*\n   %d × %s = %s\n", i+1, esc(it.ProductName), it.Quantity, it.Price.Grouped(), it.Subtotal.Grouped())
	}
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "💰 *Total: %s*\n", p.Total.Grouped())
	if kind == OrderDelivered {
		fmt.Fprintf(&b, "📊 Shop debt: %s\n\n", p.ShopDebt.Grouped())
		b.WriteString("🚚 Delivered successfully.")
		return b.String()
	}
	fmt.Fprintf(&b, "💳 Paid: %s\n", p.Paid.Grouped())
	fmt.Fprintf(&b, "📊 Remaining: %s\n", p.Remaining.Grouped())
	fmt.Fprintf(&b, "📦 Status: %s\n\n", esc(p.Status))
	b.WriteString("⏰ Delivery is on its way.")
	return b.String()
}

func renderPayment(p *PaymentPayload, at time.Time) string {
	var b strings.Builder
	b.WriteString("🧾 *PAYMENT RECEIVED*\n\n")
	fmt.Fprintf(&b, "📋 Payment #%s\n", shortID(p.EntryID))
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "👤 Distributor: %s\n", esc(p.Actor.Name))
	fmt.Fprintf(&b, "📞 Phone: %s\n\n", esc(p.Actor.Phone))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "💰 Amount paid: %s\n", p.Amount.Grouped())
	fmt.Fprintf(&b, "💳 Method: %s\n\n", esc(p.Method))
	fmt.Fprintf(&b, "📊 Previous debt: %s\n", p.PreviousDebt.Grouped())
	if p.NewDebt.IsPositive() {
		fmt.Fprintf(&b, "📉 Remaining debt: %s\n", p.NewDebt.Grouped())
	} else {
		b.WriteString("✅ Debt fully paid!\n")
	}
	if strings.TrimSpace(p.Notes) != "" {
		fmt.Fprintf(&b, "\n📝 Note: %s\n", esc(p.Notes))
	}
	fmt.Fprintf(&b, "\n📅 Date: %s", stamp(at))
	return b.String()
}

func renderManualDebt(p *ManualDebtPayload, at time.Time) string {
	var b strings.Builder
	b.WriteString("📊 *PREVIOUS DEBT ADDED*\n\n")
	fmt.Fprintf(&b, "📋 Record #%s\n", shortID(p.EntryID))
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "👤 Distributor: %s\n", esc(p.Actor.Name))
	fmt.Fprintf(&b, "📞 Phone: %s\n\n", esc(p.Actor.Phone))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "➕ Added: %s\n\n", p.Added.Grouped())
	fmt.Fprintf(&b, "📊 Previous debt: %s\n", p.PreviousDebt.Grouped())
	fmt.Fprintf(&b, "💰 Total debt: %s\n", p.NewDebt.Grouped())
	if strings.TrimSpace(p.Notes) != "" {
		fmt.Fprintf(&b, "\n📝 Note: %s\n", esc(p.Notes))
	}
	fmt.Fprintf(&b, "\n📅 Date: %s", stamp(at))
	return b.String()
}

func orderPayload(v any) (*OrderPayload, bool) {
	switch p := v.(type) {
	case *OrderPayload:
		return p, p != nil
	case OrderPayload:
		return &p, true
	}
	return nil, false
}

func paymentPayload(v any) (*PaymentPayload, bool) {
	switch p := v.(type) {
	case *PaymentPayload:
		return p, p != nil
	case PaymentPayload:
		return &p, true
	}
	return nil, false
}

func manualDebtPayload(v any) (*ManualDebtPayload, bool) {
	switch p := v.(type) {
	case *ManualDebtPayload:
		return p, p != nil
	case ManualDebtPayload:
		return &p, true
	}
	return nil, false
}
