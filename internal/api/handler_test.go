package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/shoptools/internal/stamps"
	"github.com/eugenenazirov/shoptools/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func setupTestRouter(t *testing.T, opts ...HandlerOption) (http.Handler, *storage.MemoryStorage, *controllableClock) {
	t.Helper()

	store := storage.NewMemoryStorage()
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	logger := zaptest.NewLogger(t)

	opts = append([]HandlerOption{WithClock(clock.Now), WithLogger(logger)}, opts...)
	handler := NewHandler(stamps.New(), store, opts...)
	router := NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0), WithSolveRateLimit(0, 0))

	return router, store, clock
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, _, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeBody[healthResponse](t, rec)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestSolveEndpointExactMatch(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	payload := map[string]any{
		"target": 240,
		"stock": []map[string]int{
			{"denomination": 84, "count": 5},
			{"denomination": 63, "count": 3},
			{"denomination": 10, "count": 10},
			{"denomination": 1, "count": 50},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[solveResponse](t, rec)
	if body.Exact == nil || body.Exact.Amount != 240 {
		t.Fatalf("expected exact 240, got %+v", body.Exact)
	}
	sum := 0
	for denomination, count := range body.Exact.Composition {
		var d int
		if err := json.Unmarshal([]byte(denomination), &d); err != nil {
			t.Fatalf("composition key %q is not numeric", denomination)
		}
		sum += d * count
	}
	if sum != 240 {
		t.Fatalf("composition sums to %d", sum)
	}
	if body.Exact.CompositionText == "" {
		t.Fatalf("expected composition text")
	}
	if len(body.Under) != 3 || len(body.Over) != 3 {
		t.Fatalf("expected 3 under and 3 over, got %d and %d", len(body.Under), len(body.Over))
	}
	if body.Under[0].Amount != 239 || body.Over[0].Amount != 241 {
		t.Fatalf("unexpected closest amounts: under %d over %d", body.Under[0].Amount, body.Over[0].Amount)
	}
}

func TestSolveEndpointNoExact(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	payload := map[string]any{
		"target": 84,
		"stock": []map[string]int{
			{"denomination": 84, "count": 0},
			{"denomination": 63, "count": 0},
			{"denomination": 1, "count": 50},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeBody[solveResponse](t, rec)
	if body.Exact != nil {
		t.Fatalf("expected no exact match, got %+v", body.Exact)
	}
	if len(body.Under) == 0 || body.Under[0].CompositionText != "1x50" {
		t.Fatalf("expected best under to be 1x50, got %+v", body.Under)
	}
	if body.Over == nil || len(body.Over) != 0 {
		t.Fatalf("expected empty over list, got %+v", body.Over)
	}
}

func TestSolveEndpointValidation(t *testing.T) {
	router, _, _ := setupTestRouter(t, WithLimits(1000, 20, 3))

	fourRows := []map[string]int{
		{"denomination": 1, "count": 1},
		{"denomination": 2, "count": 1},
		{"denomination": 3, "count": 1},
		{"denomination": 4, "count": 1},
	}

	tests := []struct {
		name       string
		payload    any
		wantStatus int
	}{
		{name: "ZeroTarget", payload: map[string]any{"target": 0, "stock": []map[string]int{{"denomination": 10, "count": 1}}}, wantStatus: http.StatusBadRequest},
		{name: "NegativeDenomination", payload: map[string]any{"target": 10, "stock": []map[string]int{{"denomination": -10, "count": 1}}}, wantStatus: http.StatusBadRequest},
		{name: "NegativeCount", payload: map[string]any{"target": 10, "stock": []map[string]int{{"denomination": 10, "count": -1}}}, wantStatus: http.StatusBadRequest},
		{name: "TargetAboveLimit", payload: map[string]any{"target": 1001, "stock": []map[string]int{{"denomination": 10, "count": 1}}}, wantStatus: http.StatusUnprocessableEntity},
		{name: "StockAboveLimit", payload: map[string]any{"target": 100, "stock": []map[string]int{{"denomination": 10, "count": 21}}}, wantStatus: http.StatusUnprocessableEntity},
		{name: "DenominationAboveLimit", payload: map[string]any{"target": 100, "stock": []map[string]int{{"denomination": 5000, "count": 1}}}, wantStatus: http.StatusUnprocessableEntity},
		{name: "TooManyRows", payload: map[string]any{"target": 10, "stock": fourRows}, wantStatus: http.StatusUnprocessableEntity},
		{name: "OversizedBody", payload: map[string]any{"target": 10, "note": strings.Repeat("x", maxBodyBytes)}, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "MalformedJSON", payload: "not an object", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", tc.payload)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSolveEndpointRowLimitAppliesToSavedInventory(t *testing.T) {
	router, store, _ := setupTestRouter(t, WithLimits(0, 0, 2))

	if err := store.SaveInventory(storage.Inventory{
		Rows:   []storage.Row{{Denomination: "84", Stock: "1"}, {Denomination: "63", Stock: "2"}, {Denomination: "1", Stock: "5"}},
		Target: "100",
	}); err != nil {
		t.Fatalf("SaveInventory returned error: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", map[string]any{"useSaved": true})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[errorResponse](t, rec)
	if !strings.Contains(body.Details, "3 rows above 2") {
		t.Fatalf("unexpected details %q", body.Details)
	}
}

func TestSolveEndpointFieldMessagesMatchSavedPath(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", map[string]any{
		"target": 0,
		"stock":  []map[string]int{{"denomination": 0, "count": -1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	direct := decodeBody[errorResponse](t, rec)
	want := []fieldError{
		{Field: "target", Message: "value is out of range: must be at least 1"},
		{Row: "0", Field: "denomination", Message: "value is out of range: must be at least 1"},
		{Row: "0", Field: "stock", Message: "value is out of range: must be at least 0"},
	}
	if len(direct.Fields) != len(want) {
		t.Fatalf("expected %d field errors, got %+v", len(want), direct.Fields)
	}
	for i := range want {
		if direct.Fields[i] != want[i] {
			t.Fatalf("field %d: expected %+v, got %+v", i, want[i], direct.Fields[i])
		}
	}

	if err := store.SaveInventory(storage.Inventory{Target: "0"}); err != nil {
		t.Fatalf("SaveInventory returned error: %v", err)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/stamps/solve", map[string]any{"useSaved": true})
	saved := decodeBody[errorResponse](t, rec)
	if len(saved.Fields) != 1 || saved.Fields[0] != want[0] {
		t.Fatalf("expected saved path to report %+v, got %+v", want[0], saved.Fields)
	}
}

func TestSolveEndpointUsesSavedInventory(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	if err := store.SaveInventory(storage.Inventory{
		Rows:   []storage.Row{{Denomination: "84", Stock: "1"}, {Denomination: "63", Stock: "2"}, {Denomination: "", Stock: ""}},
		Target: "210",
	}); err != nil {
		t.Fatalf("SaveInventory returned error: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", map[string]any{"useSaved": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[solveResponse](t, rec)
	if body.Exact == nil || body.Exact.CompositionText != "84x1, 63x2" {
		t.Fatalf("expected exact 84x1, 63x2, got %+v", body.Exact)
	}
}

func TestSolveEndpointSavedInventoryWithoutTarget(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", map[string]any{"useSaved": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	body := decodeBody[errorResponse](t, rec)
	if len(body.Fields) != 1 || body.Fields[0].Field != "target" {
		t.Fatalf("expected target field error, got %+v", body.Fields)
	}
}

func TestSolveEndpointDigitSeparator(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	if err := store.SaveSettings(storage.Settings{UseDigitSeparator: true}); err != nil {
		t.Fatalf("SaveSettings returned error: %v", err)
	}

	payload := map[string]any{
		"target": 1500,
		"stock":  []map[string]int{{"denomination": 500, "count": 3}},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/stamps/solve", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody[solveResponse](t, rec)
	if body.TargetText != "1,500" {
		t.Fatalf("expected grouped target, got %q", body.TargetText)
	}
	if body.Exact == nil || body.Exact.AmountText != "1,500" {
		t.Fatalf("expected grouped exact amount, got %+v", body.Exact)
	}
}

func TestInventoryEndpoints(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/stamps/inventory", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	initial := decodeBody[inventoryPayload](t, rec)
	if len(initial.Rows) != 4 {
		t.Fatalf("expected 4 default rows, got %d", len(initial.Rows))
	}

	update := inventoryPayload{
		Rows:   []inventoryRow{{ID: "a", Denomination: "120", Stock: "2"}, {Denomination: "", Stock: "3"}},
		Target: "240",
	}
	rec = doJSON(t, router, http.MethodPut, "/api/stamps/inventory", update)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	saved := decodeBody[inventoryPayload](t, rec)
	if saved.Target != "240" || len(saved.Rows) != 2 {
		t.Fatalf("unexpected saved inventory %+v", saved)
	}
	if saved.Rows[0].ID != "a" || saved.Rows[1].ID == "" {
		t.Fatalf("expected ids to be kept or assigned, got %+v", saved.Rows)
	}
}

func TestPutInventoryRejectsInvalidFields(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	before, _ := store.GetInventory()

	update := inventoryPayload{
		Rows:   []inventoryRow{{ID: "a", Denomination: "0", Stock: "-1"}},
		Target: "abc",
	}
	rec := doJSON(t, router, http.MethodPut, "/api/stamps/inventory", update)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	body := decodeBody[errorResponse](t, rec)
	if len(body.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", body.Fields)
	}

	after, _ := store.GetInventory()
	if len(after.Rows) != len(before.Rows) || after.Target != before.Target {
		t.Fatalf("inventory must not change on validation failure")
	}
}

func TestPutInventoryRejectsDuplicateIDs(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	update := inventoryPayload{Rows: []inventoryRow{{ID: "x"}, {ID: "x"}}}
	rec := doJSON(t, router, http.MethodPut, "/api/stamps/inventory", update)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCompareUnitPricesEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	payload := compareRequest{Products: []productRow{
		{ID: "a", Name: "bottle", Price: "198", Quantity: "0.9", Unit: "L"},
		{ID: "b", Name: "twin pack", Price: "300", Quantity: "1.5", Unit: "L", Count: "2"},
		{ID: "c", Name: "draft", Price: "", Quantity: "1"},
		{ID: "d", Name: "broken", Price: "0", Quantity: "1"},
	}}
	rec := doJSON(t, router, http.MethodPost, "/api/unit-price/compare", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeBody[compareResponse](t, rec)
	if len(body.Quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %+v", body.Quotes)
	}
	if body.Quotes[0].ID != "b" || body.Quotes[0].UnitPriceText != "100.00" {
		t.Fatalf("expected twin pack first at 100.00, got %+v", body.Quotes[0])
	}
	if body.Quotes[1].ID != "a" || body.Quotes[1].UnitPriceText != "220.00" {
		t.Fatalf("expected bottle second at 220.00, got %+v", body.Quotes[1])
	}
	if body.Quotes[0].TotalQuantity != "3" {
		t.Fatalf("expected total quantity 3, got %s", body.Quotes[0].TotalQuantity)
	}
	if len(body.Fields) != 1 || body.Fields[0].Row != "d" || body.Fields[0].Field != "price" {
		t.Fatalf("expected price error for row d, got %+v", body.Fields)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := decodeBody[settingsPayload](t, rec); got.FontSize != "normal" || got.UseDigitSeparator {
		t.Fatalf("unexpected default settings %+v", got)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/settings", settingsPayload{FontSize: "large", UseDigitSeparator: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := decodeBody[settingsPayload](t, rec); got.FontSize != "large" || !got.UseDigitSeparator {
		t.Fatalf("unexpected saved settings %+v", got)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/settings", settingsPayload{FontSize: "gigantic"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
