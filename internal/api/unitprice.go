package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/eugenenazirov/shoptools/internal/format"
	"github.com/eugenenazirov/shoptools/internal/unitprice"
	"github.com/eugenenazirov/shoptools/internal/validation"
)

func (h *Handler) handleCompareUnitPrices(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	products := make([]unitprice.Product, 0, len(req.Products))
	fields := []fieldError{}
	for _, row := range req.Products {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		product, rowFields, ok := parseProduct(row)
		fields = append(fields, rowFields...)
		if ok {
			products = append(products, product)
		}
	}

	grouped := h.digitSeparator()
	quotes := unitprice.Compare(products)
	resp := compareResponse{
		Quotes: make([]quoteResponse, 0, len(quotes)),
		Fields: fields,
	}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, quoteResponse{
			ID:            q.ID,
			Name:          q.Name,
			Unit:          q.Unit,
			Price:         q.Price.String(),
			Count:         q.Count,
			TotalQuantity: q.TotalQuantity.String(),
			UnitPrice:     q.UnitPrice.Round(unitPriceScale).String(),
			UnitPriceText: format.UnitPrice(q.UnitPrice, grouped),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

const unitPriceScale = 4

// parseProduct validates a product row. Rows whose price or quantity is still
// blank are incomplete and skipped without a field error; a blank count means one.
func parseProduct(row productRow) (unitprice.Product, []fieldError, bool) {
	if strings.TrimSpace(row.Price) == "" || strings.TrimSpace(row.Quantity) == "" {
		return unitprice.Product{}, nil, false
	}

	var fields []fieldError
	price, err := validation.Price(row.Price)
	if err != nil {
		fields = append(fields, newFieldError(row.ID, err))
	}
	quantity, err := validation.Quantity(row.Quantity)
	if err != nil {
		fields = append(fields, newFieldError(row.ID, err))
	}
	count := 1
	if strings.TrimSpace(row.Count) != "" {
		if count, err = validation.Count(row.Count); err != nil {
			fields = append(fields, newFieldError(row.ID, err))
		}
	}
	if len(fields) > 0 {
		return unitprice.Product{}, fields, false
	}

	return unitprice.Product{
		ID:       row.ID,
		Name:     row.Name,
		Unit:     row.Unit,
		Price:    price,
		Quantity: quantity,
		Count:    count,
	}, nil, true
}

type productRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Count    string `json:"count"`
}

type compareRequest struct {
	Products []productRow `json:"products"`
}

type quoteResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	Price         string `json:"price"`
	Count         int    `json:"count"`
	TotalQuantity string `json:"totalQuantity"`
	UnitPrice     string `json:"unitPrice"`
	UnitPriceText string `json:"unitPriceText"`
}

type compareResponse struct {
	Quotes []quoteResponse `json:"quotes"`
	Fields []fieldError    `json:"fields"`
}
