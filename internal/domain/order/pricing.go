package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/scan-and-go/internal/domain/catalog"
)

// TaxRate is the flat tax applied to every order subtotal.
var TaxRate = decimal.RequireFromString("0.05")

// Totals are the derived money fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums item totals and applies TaxRate rounded to whole
// currency units.
func ComputeTotals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	tax := subtotal.Mul(TaxRate).Round(0)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func snapshotItem(p catalog.Product, qty int) Item {
	return Item{
		ProductID: p.ID,
		Barcode:   p.Barcode,
		Name:      p.Name,
		Brand:     p.Brand,
		Category:  p.Category,
		Price:     p.Price,
		Quantity:  qty,
		Total:     p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// PaymentDetails tell the customer where to send the UPI transfer.
type PaymentDetails struct {
	UPIID  string
	QRCode string
}

// paymentDetails renders the store QR template with the order amount and id.
func paymentDetails(s catalog.Store, o *Order) *PaymentDetails {
	qr := strings.NewReplacer(
		"{amount}", o.Total.StringFixed(2),
		"{orderId}", o.ID,
	).Replace(s.UPIQRTemplate)
	return &PaymentDetails{
		UPIID:  s.UPIID,
		QRCode: qr,
	}
}
