// Package format renders amounts and unit prices for display, optionally with
// English digit grouping ("1,234").
package format

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount renders an integer amount, grouping thousands when grouped is set.
func Amount(value int, grouped bool) string {
	if !grouped {
		return strconv.Itoa(value)
	}
	return message.NewPrinter(language.English).Sprintf("%d", value)
}

// UnitPrice renders value rounded half up to two decimal places.
func UnitPrice(value decimal.Decimal, grouped bool) string {
	fixed := value.StringFixed(2)
	if !grouped {
		return fixed
	}

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + message.NewPrinter(language.English).Sprintf("%d", n) + "." + frac
}
