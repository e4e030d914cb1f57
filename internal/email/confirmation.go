package email

import (
	"bytes"
	"context"
	"html/template"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<h1>Thank you for your order</h1>
<p>Order <strong>{{.ID}}</strong> has been received and is {{.Status}}.</p>
<table>
{{range .Items}}<tr><td>{{.Title}}{{if .Variant}} ({{.Variant}}){{end}}</td><td>&times; {{.Quantity}}</td><td>{{.Price}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Subtotal}}</p>
{{if .Discount}}<p>Coupon {{.CouponCode}}: -{{.Discount}}</p>
{{end}}{{if .PointsDiscount}}<p>Points ({{.PointsRedeemed}}): -{{.PointsDiscount}}</p>
{{end}}<p>Shipping: {{.Shipping}}</p>
<p>Tax: {{.Tax}}</p>
<p><strong>Total: {{.Total}}</strong></p>
<p>Shipping to {{.Address.FullName}}, {{.Address.AddressLine1}}, {{.Address.City}} {{.Address.PostalCode}}, {{.Address.Country}}</p>
`))

type confirmationItem struct {
	Title    string
	Variant  string
	Quantity int
	Price    string
}

type confirmationView struct {
	ID             string
	Status         string
	Items          []confirmationItem
	Subtotal       string
	CouponCode     string
	Discount       string
	PointsRedeemed int64
	PointsDiscount string
	Shipping       string
	Tax            string
	Total          string
	Address        order.Address
}

// Notifier sends order confirmation emails.
type Notifier struct {
	sender  Sender
	policy  *bluemonday.Policy
	printer *message.Printer
}

var _ order.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier using sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{
		sender:  sender,
		policy:  bluemonday.UGCPolicy(),
		printer: message.NewPrinter(language.English),
	}
}

// OrderPlaced emails the order summary to the customer.
func (n *Notifier) OrderPlaced(ctx context.Context, to string, o *order.Order) error {
	html, err := n.Render(o)
	if err != nil {
		return err
	}
	id, err := n.sender.Send(ctx, Message{
		To:      []string{to},
		Subject: "Your Orephia order " + o.ID,
		HTML:    html,
	})
	if err != nil {
		return errors.Wrap(err, "send confirmation")
	}
	zctx.From(ctx).Debug("Confirmation email sent",
		zap.String("order_id", o.ID),
		zap.String("email_id", id),
	)
	return nil
}

// Render produces the sanitized confirmation HTML for o.
func (n *Notifier) Render(o *order.Order) (string, error) {
	unit, err := currency.ParseISO(o.Currency)
	if err != nil {
		return "", errors.Wrapf(err, "order currency %q", o.Currency)
	}
	money := func(d decimal.Decimal) string {
		return n.printer.Sprint(currency.Symbol(unit.Amount(d.InexactFloat64())))
	}
	optional := func(d decimal.Decimal) string {
		if !d.IsPositive() {
			return ""
		}
		return money(d)
	}

	v := confirmationView{
		ID:             o.ID,
		Status:         string(o.Status),
		Subtotal:       money(o.Subtotal),
		CouponCode:     o.CouponCode,
		Discount:       optional(o.Discount),
		PointsRedeemed: o.PointsRedeemed,
		PointsDiscount: optional(o.PointsDiscount),
		Shipping:       money(o.Shipping),
		Tax:            money(o.Tax),
		Total:          money(o.Total),
		Address:        o.ShippingAddress,
	}
	for _, it := range o.Items {
		variant := it.Size
		if it.Color != "" {
			if variant != "" {
				variant += ", "
			}
			variant += it.Color
		}
		v.Items = append(v.Items, confirmationItem{
			Title:    it.Title,
			Variant:  variant,
			Quantity: it.Quantity,
			Price:    money(it.UnitPrice),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, v); err != nil {
		return "", errors.Wrap(err, "render confirmation")
	}
	return n.policy.Sanitize(buf.String()), nil
}
