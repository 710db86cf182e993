package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/shoptools/internal/stamps"
	"github.com/eugenenazirov/shoptools/internal/storage"
	"github.com/eugenenazirov/shoptools/internal/validation"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	defaultMaxTarget  = 1_000_000
	defaultMaxStock   = 10_000
	defaultMaxEntries = 20

	// maxBodyBytes caps every JSON request body.
	maxBodyBytes = 64 << 10
)

// Handler wires the solver and storage dependencies into HTTP handlers.
type Handler struct {
	solver  stamps.Solver
	storage storage.Storage
	logger  *zap.Logger

	clock func() time.Time

	maxTarget  int
	maxStock   int
	maxEntries int
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for calculation diagnostics.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLimits bounds the solver input accepted by the handler. The target and
// every denomination must not exceed maxTarget, no row may hold more than
// maxStock pieces, and a request may carry at most maxEntries rows.
// Non-positive values keep the defaults.
func WithLimits(maxTarget, maxStock, maxEntries int) HandlerOption {
	return func(h *Handler) {
		if maxTarget > 0 {
			h.maxTarget = maxTarget
		}
		if maxStock > 0 {
			h.maxStock = maxStock
		}
		if maxEntries > 0 {
			h.maxEntries = maxEntries
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(solver stamps.Solver, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		solver:  solver,
		storage: store,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxTarget:  defaultMaxTarget,
		maxStock:   defaultMaxStock,
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_ = r
	settings, err := h.storage.GetSettings()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsPayload(settings))
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if !decodeJSON(w, r, &req) {
		return
	}

	settings := storage.Settings{
		FontSize:          storage.FontSizePreset(req.FontSize),
		UseDigitSeparator: req.UseDigitSeparator,
	}
	if err := h.storage.SaveSettings(settings); err != nil {
		if errors.Is(err, storage.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, "Invalid settings", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	saved, err := h.storage.GetSettings()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsPayload(saved))
}

// digitSeparator reports whether amounts should be rendered with grouping.
// Storage failures fall back to plain digits.
func (h *Handler) digitSeparator() bool {
	settings, err := h.storage.GetSettings()
	if err != nil {
		h.logger.Warn("read settings failed", zap.Error(err))
		return false
	}
	return settings.UseDigitSeparator
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type settingsPayload struct {
	FontSize          string `json:"fontSize"`
	UseDigitSeparator bool   `json:"useDigitSeparator"`
}

func toSettingsPayload(s storage.Settings) settingsPayload {
	return settingsPayload{
		FontSize:          string(s.FontSize),
		UseDigitSeparator: s.UseDigitSeparator,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type fieldError struct {
	Row     string `json:"row,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error      string       `json:"error"`
	Details    string       `json:"details,omitempty"`
	Suggestion string       `json:"suggestion,omitempty"`
	Fields     []fieldError `json:"fields,omitempty"`
}

// newFieldError converts a validation failure into its response form.
func newFieldError(row string, err error) fieldError {
	fe := fieldError{Row: row, Message: err.Error()}
	var vErr *validation.FieldError
	if errors.As(err, &vErr) {
		fe.Field = vErr.Field
		fe.Message = vErr.Err.Error()
	}
	return fe
}

// decodeJSON reads a size-capped JSON body into dst. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeFieldErrors(w http.ResponseWriter, fields []fieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "Invalid input",
		Details: "one or more fields failed validation",
		Fields:  fields,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
