package email

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// PurchaseReceiptEmail confirms a completed checkout to the buyer.
type PurchaseReceiptEmail struct {
	To          string
	StoreName   string
	ProductName string
	Amount      int64 // smallest currency unit, before discounts and tax
	Currency    string
	CheckoutID  string
	PurchasedAt time.Time
}

func (e PurchaseReceiptEmail) Subject() string {
	return "Your purchase from " + e.StoreName
}

func (e PurchaseReceiptEmail) TemplateName() string {
	return "purchase_receipt.html"
}

// SaleNotificationEmail tells a store owner about a completed checkout.
type SaleNotificationEmail struct {
	To            string
	StoreName     string
	ProductName   string
	Amount        int64
	Currency      string
	CustomerEmail string
	CheckoutID    string
	SoldAt        time.Time
}

func (e SaleNotificationEmail) Subject() string {
	return "New sale: " + e.ProductName
}

func (e SaleNotificationEmail) TemplateName() string {
	return "sale_notification.html"
}

// zeroDecimalCurrencies are charged in whole units by the payment provider.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

// FormatAmount renders an amount in the smallest currency unit as a decimal
// with the upper-case currency code, e.g. 1050 usd -> "10.50 USD" and
// 1050 jpy -> "1050 JPY".
func FormatAmount(amount int64, currency string) string {
	places := int32(2)
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		places = 0
	}
	return decimal.New(amount, -places).StringFixed(places) + " " + strings.ToUpper(currency)
}
