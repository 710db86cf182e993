package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/shoptools/internal/format"
	"github.com/eugenenazirov/shoptools/internal/stamps"
	"github.com/eugenenazirov/shoptools/internal/storage"
	"github.com/eugenenazirov/shoptools/internal/validation"
)

var errLimitExceeded = errors.New("input exceeds configured limits")

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stock, target, fields, err := h.solveInput(req)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}
	if err := h.checkLimits(stock, target); err != nil {
		suggestion := fmt.Sprintf("Use at most %d rows, keep the target and denominations at or below %d and each stock at or below %d",
			h.maxEntries, h.maxTarget, h.maxStock)
		writeError(w, http.StatusUnprocessableEntity, "Input too large", err.Error(), suggestion)
		return
	}

	start := time.Now()
	result := h.solver.Solve(stock, target)
	elapsed := time.Since(start)

	h.logger.Debug("stamps solved",
		zap.Int("target", target),
		zap.Int("entries", len(stock)),
		zap.Bool("exact", result.Exact != nil),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	grouped := h.digitSeparator()
	resp := solveResponse{
		Target:            target,
		TargetText:        format.Amount(target, grouped),
		Under:             toCombinationResponses(result.Under, grouped),
		Over:              toCombinationResponses(result.Over, grouped),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	if result.Exact != nil {
		exact := toCombinationResponse(*result.Exact, grouped)
		resp.Exact = &exact
	}
	writeJSON(w, http.StatusOK, resp)
}

// solveInput resolves the stock and target either from the request body or
// from the saved inventory.
func (h *Handler) solveInput(req solveRequest) ([]stamps.Stock, int, []fieldError, error) {
	if req.UseSaved {
		inv, err := h.storage.GetInventory()
		if err != nil {
			return nil, 0, nil, err
		}
		target, err := validation.Target(inv.Target)
		if err != nil {
			return nil, 0, []fieldError{newFieldError("", err)}, nil
		}
		return inv.Stock(), target, nil, nil
	}

	var fields []fieldError
	if err := validation.CheckTarget(req.Target); err != nil {
		fields = append(fields, newFieldError("", err))
	}
	stock := make([]stamps.Stock, 0, len(req.Stock))
	for i, entry := range req.Stock {
		row := strconv.Itoa(i)
		if err := validation.CheckDenomination(entry.Denomination); err != nil {
			fields = append(fields, newFieldError(row, err))
		}
		if err := validation.CheckStock(entry.Count); err != nil {
			fields = append(fields, newFieldError(row, err))
		}
		stock = append(stock, stamps.Stock{Denomination: entry.Denomination, Count: entry.Count})
	}
	return stock, req.Target, fields, nil
}

// checkLimits keeps a single solve within bounded time. The solver walks
// every decomposed item across the whole search range, so the row count is
// capped alongside the amounts.
func (h *Handler) checkLimits(stock []stamps.Stock, target int) error {
	if len(stock) > h.maxEntries {
		return fmt.Errorf("%w: %d rows above %d", errLimitExceeded, len(stock), h.maxEntries)
	}
	if target > h.maxTarget {
		return fmt.Errorf("%w: target %d above %d", errLimitExceeded, target, h.maxTarget)
	}
	for _, s := range stock {
		if s.Denomination > h.maxTarget {
			return fmt.Errorf("%w: denomination %d above %d", errLimitExceeded, s.Denomination, h.maxTarget)
		}
		if s.Count > h.maxStock {
			return fmt.Errorf("%w: stock %d above %d", errLimitExceeded, s.Count, h.maxStock)
		}
	}
	return nil
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	_ = r
	inv, err := h.storage.GetInventory()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryPayload(inv))
}

func (h *Handler) handlePutInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryPayload
	if !decodeJSON(w, r, &req) {
		return
	}

	inv := storage.Inventory{Target: req.Target, Rows: make([]storage.Row, 0, len(req.Rows))}
	var fields []fieldError
	for i, row := range req.Rows {
		ref := row.ID
		if ref == "" {
			ref = strconv.Itoa(i)
		}
		if row.Denomination != "" {
			if _, err := validation.Denomination(row.Denomination); err != nil {
				fields = append(fields, newFieldError(ref, err))
			}
		}
		if row.Stock != "" {
			if _, err := validation.Stock(row.Stock); err != nil {
				fields = append(fields, newFieldError(ref, err))
			}
		}
		inv.Rows = append(inv.Rows, storage.Row(row))
	}
	if req.Target != "" {
		if _, err := validation.Target(req.Target); err != nil {
			fields = append(fields, newFieldError("", err))
		}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	if err := h.storage.SaveInventory(inv); err != nil {
		if errors.Is(err, storage.ErrInvalidInventory) {
			writeError(w, http.StatusBadRequest, "Invalid inventory", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	saved, err := h.storage.GetInventory()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryPayload(saved))
}

func toCombinationResponses(combos []stamps.Combination, grouped bool) []combinationResponse {
	out := make([]combinationResponse, 0, len(combos))
	for _, c := range combos {
		out = append(out, toCombinationResponse(c, grouped))
	}
	return out
}

func toCombinationResponse(c stamps.Combination, grouped bool) combinationResponse {
	composition := make(map[string]int, len(c.Composition))
	for denomination, count := range c.Composition {
		composition[strconv.Itoa(denomination)] = count
	}
	return combinationResponse{
		Amount:          c.Amount,
		AmountText:      format.Amount(c.Amount, grouped),
		Deviation:       c.Deviation,
		Pieces:          c.Pieces,
		Composition:     composition,
		CompositionText: stamps.FormatComposition(c.Composition),
	}
}

func toInventoryPayload(inv storage.Inventory) inventoryPayload {
	rows := make([]inventoryRow, 0, len(inv.Rows))
	for _, row := range inv.Rows {
		rows = append(rows, inventoryRow(row))
	}
	return inventoryPayload{Rows: rows, Target: inv.Target}
}

type stockEntry struct {
	Denomination int `json:"denomination"`
	Count        int `json:"count"`
}

type solveRequest struct {
	Stock    []stockEntry `json:"stock"`
	Target   int          `json:"target"`
	UseSaved bool         `json:"useSaved"`
}

type combinationResponse struct {
	Amount          int            `json:"amount"`
	AmountText      string         `json:"amountText"`
	Deviation       int            `json:"deviation"`
	Pieces          int            `json:"pieces"`
	Composition     map[string]int `json:"composition"`
	CompositionText string         `json:"compositionText"`
}

type solveResponse struct {
	Target            int                   `json:"target"`
	TargetText        string                `json:"targetText"`
	Exact             *combinationResponse  `json:"exact"`
	Under             []combinationResponse `json:"under"`
	Over              []combinationResponse `json:"over"`
	CalculationTimeMs int64                 `json:"calculationTimeMs"`
}

type inventoryRow struct {
	ID           string `json:"id"`
	Denomination string `json:"denomination"`
	Stock        string `json:"stock"`
}

type inventoryPayload struct {
	Rows   []inventoryRow `json:"rows"`
	Target string         `json:"target"`
}
