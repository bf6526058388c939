// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shelfwise/internal/clock"
	"shelfwise/internal/inventory"
)

type Handler struct {
	service Service
	clk     clock.Clock
}

func NewHandler(service Service, clk clock.Clock) *Handler {
	return &Handler{service: service, clk: clk}
}

// Routes returns the circulation endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout/{itemID}/borrower/{borrowerID}", h.handleCheckout)
	r.Post("/return/{itemID}", h.handleReturn)
	r.Get("/checkedout", h.handleListCheckedOut)
	r.Get("/overdue", h.handleListOverdue)
	r.Get("/summary", h.handleSummary)
	return r
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	borrowerID, err := uuid.Parse(chi.URLParam(r, "borrowerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid borrower ID")
		return
	}

	periodDays := 0
	if raw := r.URL.Query().Get("period_days"); raw != "" {
		periodDays, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid period_days")
			return
		}
	}

	item, err := h.service.Checkout(r.Context(), itemID, borrowerID, periodDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	item, err := h.service.Return(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleListCheckedOut(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCheckedOut(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListOverdue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ClassifyOverdue(r.Context(), h.clk.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Aggregate(r.Context(), h.clk.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrConflict), errors.Is(err, inventory.ErrNotCheckedOut):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
