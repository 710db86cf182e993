// Package unitprice compares products by price per unit of content.
package unitprice

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Product is one row of the comparison table. Quantity is the content of a
// single pack and may be fractional; Count is the number of packs sold together.
type Product struct {
	ID       string
	Name     string
	Unit     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Count    int
}

// Quote is the computed unit price for a Product.
type Quote struct {
	ID            string
	Name          string
	Unit          string
	Price         decimal.Decimal
	Count         int
	TotalQuantity decimal.Decimal
	UnitPrice     decimal.Decimal
}

// Calculate returns price / (quantity * count). Rounding is left to the caller.
func Calculate(price, quantity decimal.Decimal, count int) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	if !quantity.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	if count < 1 {
		return decimal.Zero, ErrInvalidCount
	}
	return price.Div(quantity.Mul(decimal.NewFromInt(int64(count)))), nil
}

// Compare quotes every valid product and orders them cheapest unit price
// first. Products that fail Calculate's preconditions are skipped.
func Compare(products []Product) []Quote {
	quotes := make([]Quote, 0, len(products))
	for _, p := range products {
		unitPrice, err := Calculate(p.Price, p.Quantity, p.Count)
		if err != nil {
			continue
		}
		quotes = append(quotes, Quote{
			ID:            p.ID,
			Name:          p.Name,
			Unit:          p.Unit,
			Price:         p.Price,
			Count:         p.Count,
			TotalQuantity: p.Quantity.Mul(decimal.NewFromInt(int64(p.Count))),
			UnitPrice:     unitPrice,
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].UnitPrice.LessThan(quotes[j].UnitPrice)
	})
	return quotes
}
