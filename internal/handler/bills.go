package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sanapay/sanapay-system/internal/middleware"
	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
	"github.com/sanapay/sanapay-system/internal/service"
	"github.com/sanapay/sanapay-system/internal/validation"
)

type billCreateRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Category      string  `json:"category" validate:"required"`
	DueDate       string  `json:"due_date" validate:"omitempty"`
	Notes         string  `json:"notes" validate:"omitempty,max=1000"`
	AccountNumber string  `json:"account_number" validate:"omitempty,max=100"`
}

type billResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Category      string  `json:"category"`
	DueDate       *string `json:"due_date"`
	Notes         string  `json:"notes,omitempty"`
	AccountNumber string  `json:"account_number,omitempty"`
	PaidAt        *string `json:"paid_at"`
	TransactionID *int64  `json:"transaction_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toBillResponse(b *model.Bill) billResponse {
	resp := billResponse{
		ID:            b.ID,
		Title:         b.Title,
		Amount:        money.FromCents(b.Amount),
		Status:        string(b.Status),
		Category:      string(b.Category),
		Notes:         b.Notes,
		AccountNumber: b.AccountNumber,
		TransactionID: b.TransactionID,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
	if b.DueDate != nil {
		s := b.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	if b.PaidAt != nil {
		s := b.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}

// parseDueDate принимает срок оплаты как метку времени RFC3339 или как дату
// без времени.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		ts, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
	}

	return &ts, nil
}

// CreateBill создаёт новый счёт к оплате.
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req billCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	bill, err := h.service.CreateBill(r.Context(), userID, service.BillInput{
		Title:         req.Title,
		Amount:        req.Amount,
		Category:      model.BillCategory(req.Category),
		DueDate:       dueDate,
		Notes:         req.Notes,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		h.respondError(w, err, "create bill error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toBillResponse(bill))
}

type billListResponse struct {
	Bills []billResponse `json:"bills"`
	Total int            `json:"total"`
}

// ListBills возвращает счета пользователя с фильтрацией по статусу и категории.
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()

	var status *model.BillStatus
	if v := q.Get("status"); v != "" {
		s := model.BillStatus(v)
		if !model.IsValidBillStatus(s) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		status = &s
	}

	var category *model.BillCategory
	if v := q.Get("category"); v != "" {
		c := model.BillCategory(v)
		if !model.IsValidBillCategory(c) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		category = &c
	}

	bills, err := h.service.ListBills(r.Context(), userID, status, category)
	if err != nil {
		h.respondError(w, err, "list bills error")
		return
	}

	resp := billListResponse{
		Bills: make([]billResponse, 0, len(bills)),
		Total: len(bills),
	}
	for i := range bills {
		resp.Bills = append(resp.Bills, toBillResponse(&bills[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func billIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "billID"), 10, 64)
}

// GetBill возвращает счёт пользователя по идентификатору.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	bill, err := h.service.GetBill(r.Context(), userID, billID)
	if err != nil {
		h.respondError(w, err, "get bill error")
		return
	}

	h.writeJSON(w, http.StatusOK, toBillResponse(bill))
}

type billUpdateRequest struct {
	Title         *string  `json:"title" validate:"omitempty,max=200"`
	Amount        *float64 `json:"amount" validate:"omitempty,gt=0"`
	Category      *string  `json:"category" validate:"omitempty"`
	DueDate       *string  `json:"due_date" validate:"omitempty"`
	Notes         *string  `json:"notes" validate:"omitempty,max=1000"`
	AccountNumber *string  `json:"account_number" validate:"omitempty,max=100"`
	Status        *string  `json:"status" validate:"omitempty"`
}

// UpdateBill обновляет переданные поля счёта.
func (h *Handler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req billUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var in service.BillUpdateInput
	in.Title = req.Title
	in.Amount = req.Amount
	in.Notes = req.Notes
	in.AccountNumber = req.AccountNumber
	if req.Category != nil {
		c := model.BillCategory(*req.Category)
		in.Category = &c
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		in.DueDate = dueDate
	}
	if req.Status != nil {
		s := model.BillStatus(*req.Status)
		in.Status = &s
	}

	bill, err := h.service.UpdateBill(r.Context(), userID, billID, in)
	if err != nil {
		h.respondError(w, err, "update bill error")
		return
	}

	h.writeJSON(w, http.StatusOK, toBillResponse(bill))
}

// DeleteBill удаляет счёт пользователя.
func (h *Handler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBill(r.Context(), userID, billID); err != nil {
		h.respondError(w, err, "delete bill error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type payBillResponse struct {
	Bill             billResponse `json:"bill"`
	RemainingBalance float64      `json:"remaining_balance"`
}

// PayBill оплачивает счёт с кошелька пользователя.
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	billID, err := billIDFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.PayBill(r.Context(), userID, billID)
	if err != nil {
		h.respondError(w, err, "pay bill error")
		return
	}

	h.writeJSON(w, http.StatusOK, payBillResponse{
		Bill:             toBillResponse(result.Bill),
		RemainingBalance: result.RemainingBalance,
	})
}
