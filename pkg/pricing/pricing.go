// Package pricing renders product prices for the storefront.
package pricing

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/andrescris/shopfront/pkg/models"
)

type Currency string

const (
	ZAR Currency = "ZAR"
	EUR Currency = "EUR"
)

// ComingSoon is shown when a product has no price in the selected currency.
const ComingSoon = "Coming soon"

const compareSeparator = "  •  "

var Currencies = []Currency{ZAR, EUR}

var printer = message.NewPrinter(language.English)

// ParseCurrency maps user input to a known currency, falling back to ZAR.
func ParseCurrency(s string) Currency {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case EUR:
		return EUR
	default:
		return ZAR
	}
}

// Label is the split form of a display price. CompareAt is the struck-through
// pre-discount amount, empty when the product is not on sale.
type Label struct {
	Amount     string `json:"amount"`
	CompareAt  string `json:"compareAt,omitempty"`
	ComingSoon bool   `json:"comingSoon"`
}

func (l Label) String() string {
	if l.ComingSoon {
		return ComingSoon
	}
	if l.CompareAt == "" {
		return l.Amount
	}
	return l.Amount + compareSeparator + l.CompareAt
}

// Prices returns the price and compare-at price for the currency.
func Prices(p models.Product, c Currency) (price, compareAt *float64) {
	if c == EUR {
		return p.PriceEUR, p.CompareAtPriceEUR
	}
	return p.PriceZAR, p.CompareAtPriceZAR
}

func LabelFor(p models.Product, c Currency) Label {
	price, compare := Prices(p, c)
	if price == nil {
		return Label{ComingSoon: true}
	}
	l := Label{Amount: Amount(c, *price)}
	if compare != nil && *compare != 0 {
		l.CompareAt = Amount(c, *compare)
	}
	return l
}

// Format is LabelFor rendered as one line.
func Format(p models.Product, c Currency) string {
	return LabelFor(p, c).String()
}

// Amount formats v with exactly two decimals and digit grouping.
func Amount(c Currency, v float64) string {
	return string(c) + " " + printer.Sprintf("%.2f", v)
}
