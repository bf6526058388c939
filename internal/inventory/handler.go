// internal/inventory/handler.go
package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shelfwise/internal/clock"
	"shelfwise/internal/validate"
)

type Handler struct {
	repo    Repository
	clk     clock.Clock
	limiter *rate.Limiter
}

func NewHandler(repo Repository, clk clock.Clock) *Handler {
	return &Handler{
		repo:    repo,
		clk:     clk,
		limiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

// Routes returns the item and borrower CRUD endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.handleCreateItem)
		r.Get("/", h.handleListItems)
		r.Get("/{id}", h.handleGetItem)
		r.Put("/{id}", h.handleUpdateItem)
		r.Delete("/{id}", h.handleDeleteItem)
		r.Get("/{id}/events", h.handleItemHistory)
	})

	r.Route("/borrowers", func(r chi.Router) {
		r.Post("/", h.handleCreateBorrower)
		r.Get("/", h.handleListBorrowers)
		r.Get("/{id}", h.handleGetBorrower)
		r.Put("/{id}", h.handleUpdateBorrower)
		r.Delete("/{id}", h.handleDeleteBorrower)
		r.Get("/{id}/items", h.handleBorrowerItems)
	})

	return r
}

type createItemRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"published_year"`
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.Author == "" {
		writeError(w, http.StatusUnprocessableEntity, "title and author are required")
		return
	}
	if req.ISBN != "" && !validate.IsISBN(req.ISBN) {
		writeError(w, http.StatusUnprocessableEntity, "invalid ISBN")
		return
	}

	item := &Item{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
	}
	if err := h.repo.CreateItem(r.Context(), item); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	var filter ItemFilter
	if raw := r.URL.Query().Get("checked_out"); raw != "" {
		checkedOut, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid checked_out")
			return
		}
		filter.CheckedOut = &checkedOut
	}
	if raw := r.URL.Query().Get("borrower_id"); raw != "" {
		borrowerID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid borrower_id")
			return
		}
		filter.BorrowerID = &borrowerID
	}

	items, err := h.repo.ListItems(r.Context(), filter)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	item, err := h.repo.GetItem(r.Context(), id)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type updateItemRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	PublishedYear *int    `json:"published_year"`
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ISBN != nil && *req.ISBN != "" && !validate.IsISBN(*req.ISBN) {
		writeError(w, http.StatusUnprocessableEntity, "invalid ISBN")
		return
	}

	item, err := h.repo.UpdateItem(r.Context(), id, ItemUpdate{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
	})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteItem(r.Context(), id); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.ItemHistory(r.Context(), id, 50)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type createBorrowerRequest struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	MembershipStart *time.Time `json:"membership_start"`
}

func (h *Handler) handleCreateBorrower(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req createBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if !validate.IsEmail(req.Email) {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	membershipStart := h.clk.Now()
	if req.MembershipStart != nil {
		membershipStart = *req.MembershipStart
	}

	b := &Borrower{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		MembershipStart: membershipStart,
	}
	if err := h.repo.CreateBorrower(r.Context(), b); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.repo.ListBorrowers(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowers)
}

func (h *Handler) handleGetBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.repo.GetBorrower(r.Context(), id)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type updateBorrowerRequest struct {
	Name            *string    `json:"name"`
	Email           *string    `json:"email"`
	Phone           *string    `json:"phone"`
	MembershipStart *time.Time `json:"membership_start"`
}

func (h *Handler) handleUpdateBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email != nil && !validate.IsEmail(*req.Email) {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	b, err := h.repo.UpdateBorrower(r.Context(), id, BorrowerUpdate{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		MembershipStart: req.MembershipStart,
	})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleDeleteBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteBorrower(r.Context(), id); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleBorrowerItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if _, err := h.repo.GetBorrower(r.Context(), id); err != nil {
		writeRepoError(w, err)
		return
	}
	items, err := h.repo.ListItems(r.Context(), ItemFilter{BorrowerID: &id})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotCheckedOut):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
