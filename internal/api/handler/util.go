package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/currency-widget/internal/api/problem"
	"github.com/ayo6706/currency-widget/internal/currency"
	"github.com/ayo6706/currency-widget/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

var validate = validator.New()

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// decodeJSON parses the request body into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate request body: %w", err)
	}
	return nil
}

// respondServiceError maps widget errors onto problem documents.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, currency.ErrUnknownCurrency):
		RespondError(w, r, http.StatusUnprocessableEntity, "currency/unknown", err.Error())
	case errors.Is(err, service.ErrTargetNotOffered):
		RespondError(w, r, http.StatusUnprocessableEntity, "target/not-offered", err.Error())
	case errors.Is(err, service.ErrTargetIndex):
		RespondError(w, r, http.StatusNotFound, "target/not-found", err.Error())
	case errors.Is(err, service.ErrConvertUnavailable):
		problem.WriteDetails(w, r, problem.Details{
			Type:   problem.Type("conversion/unavailable"),
			Status: http.StatusConflict,
			Detail: err.Error(),
			Reason: unavailableReason(err),
		})
	default:
		zap.L().Error("widget action failed", zap.String("path", r.URL.Path), zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "widget/action-failed", "Widget action failed")
	}
}

func unavailableReason(err error) string {
	switch {
	case errors.Is(err, service.ErrRatesUnavailable):
		return "rates_unavailable"
	case errors.Is(err, service.ErrAmountInvalid):
		return "amount_invalid"
	case errors.Is(err, service.ErrNoTargets):
		return "no_targets"
	default:
		return ""
	}
}
