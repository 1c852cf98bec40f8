// Package handler exposes the commerce core over JSON HTTP. Handlers
// translate between transport and domain types; all business rules live
// below them.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"shopcore/internal/model"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a domain failure to an HTTP response, preserving
// the stable error code where one exists.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var (
		stockErr     *model.InsufficientStockError
		variantErr   *model.InvalidVariantError
		transErr     *model.InvalidTransitionError
		invariantErr *model.LedgerInvariantError
		domainErr    *model.DomainError
	)

	switch {
	case errors.As(err, &stockErr):
		writeCoded(w, http.StatusConflict, model.ErrCodeInsufficientStock, stockErr.Error(), logger)
	case errors.As(err, &variantErr):
		writeCoded(w, http.StatusBadRequest, model.ErrCodeInvalidVariant, variantErr.Error(), logger)
	case errors.As(err, &transErr):
		writeCoded(w, http.StatusConflict, model.ErrCodeInvalidTransition, transErr.Error(), logger)
	case errors.As(err, &invariantErr):
		logger.Error().Err(invariantErr).Str("product_id", invariantErr.ProductID).Msg("ledger invariant violated")
		writeCoded(w, http.StatusInternalServerError, model.ErrCodeLedgerInvariant, "internal inventory error", logger)
	case errors.As(err, &domainErr):
		writeCoded(w, statusForCode(domainErr.Code), domainErr.Code, domainErr.Message, logger)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error", logger)
	}
}

func writeCoded(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("code", code).Int("status", status).Str("error", message).Msg("domain error")
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound, model.ErrCodeCartLineNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmptyCart, model.ErrCodeInvalidQuantity:
		return http.StatusBadRequest
	case model.ErrCodeConcurrentModification:
		return http.StatusConflict
	case model.ErrCodePaymentDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// userID resolves the calling user. Authentication proper lives outside
// the core; the facade trusts the X-User-ID header the gateway sets.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
