package handler

import (
	"net/http"
	"strconv"

	"github.com/ayo6706/currency-widget/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WidgetHandler struct {
	svc *service.WidgetService
}

func NewWidgetHandler(svc *service.WidgetService) *WidgetHandler {
	return &WidgetHandler{svc: svc}
}

type amountRequest struct {
	Input string `json:"input" validate:"max=32"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,len=3,alpha"`
}

func (h *WidgetHandler) GetState(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

// SetAmount applies one edit of the amount field. Rejected input keeps the
// previous amount and answers 422.
func (h *WidgetHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if _, ok := h.svc.SetAmount(req.Input); !ok {
		RespondError(w, r, http.StatusUnprocessableEntity, "amount/rejected", "Amount must be digits with at most two decimal places")
		return
	}
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *WidgetHandler) SetSource(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := h.svc.SetSource(req.Code); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *WidgetHandler) AddTarget(w http.ResponseWriter, r *http.Request) {
	h.svc.AddTarget()
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *WidgetHandler) ReplaceTarget(w http.ResponseWriter, r *http.Request) {
	index, ok := targetIndex(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if _, err := h.svc.ReplaceTarget(index, req.Code); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *WidgetHandler) RemoveTarget(w http.ResponseWriter, r *http.Request) {
	index, ok := targetIndex(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.RemoveTarget(index); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *WidgetHandler) Convert(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Convert(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	zap.L().Info("conversion recorded",
		zap.Int("entries", len(result.Entries)),
		zap.Strings("skipped", result.Skipped),
	)
	RespondJSON(w, http.StatusCreated, result)
}

func (h *WidgetHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refetch starts a manual rate fetch and returns without waiting for it.
func (h *WidgetHandler) Refetch(w http.ResponseWriter, r *http.Request) {
	h.svc.Refetch()
	RespondJSON(w, http.StatusAccepted, h.svc.Snapshot())
}

func (h *WidgetHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.svc.ToggleTheme(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"theme": string(theme)})
}

func targetIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-target-index", "Invalid target index")
		return 0, false
	}
	return index, true
}
