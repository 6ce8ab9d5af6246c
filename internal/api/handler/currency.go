package handler

import (
	"net/http"

	"github.com/ayo6706/currency-widget/internal/currency"
)

type CurrencyHandler struct{}

func NewCurrencyHandler() *CurrencyHandler {
	return &CurrencyHandler{}
}

// ListCurrencies returns the fixed catalog in display order.
func (h *CurrencyHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{"currencies": currency.All()})
}
