// Package handler содержит HTTP-обработчики API платёжного сервиса sanapay.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sanapay/sanapay-system/internal/middleware"
	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
	"github.com/sanapay/sanapay-system/internal/repository"
	"github.com/sanapay/sanapay-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password, firstName, lastName string) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (int64, error)
	GetProfile(ctx context.Context, userID int64) (*service.Profile, error)

	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	Deposit(ctx context.Context, userID int64, amount float64) (float64, error)
	Withdraw(ctx context.Context, userID int64, amount float64) (float64, error)
	Transfer(ctx context.Context, userID int64, targetNumber string, amount float64, description string) (float64, error)
	GetHistory(ctx context.Context, userID int64, f service.HistoryFilter) ([]model.Transaction, error)
	GetStats(ctx context.Context, userID int64) (*model.WalletStats, error)

	CreateBill(ctx context.Context, userID int64, in service.BillInput) (*model.Bill, error)
	ListBills(ctx context.Context, userID int64, status *model.BillStatus, category *model.BillCategory) ([]model.Bill, error)
	GetBill(ctx context.Context, userID, billID int64) (*model.Bill, error)
	UpdateBill(ctx context.Context, userID, billID int64, in service.BillUpdateInput) (*model.Bill, error)
	DeleteBill(ctx context.Context, userID, billID int64) error
	PayBill(ctx context.Context, userID, billID int64) (*service.PayBillResult, error)

	GetSummary(ctx context.Context, userID int64) (*model.Summary, error)
	GetMonthlyAnalytics(ctx context.Context, userID int64) ([]model.MonthBucket, error)
	GetYearlyAnalytics(ctx context.Context, userID int64) ([]model.YearBucket, error)
	GetCategoryAnalytics(ctx context.Context, userID int64) (*model.CategoryReport, error)
}

// Handler реализует HTTP-обработчики API платёжного сервиса sanapay.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// respondError транслирует ошибки бизнес-логики в HTTP-статусы. Наружу уходят
// только тексты доменных ошибок; детали хранилища остаются в логе.
func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidBillStatus),
		errors.Is(err, repository.ErrSameWallet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidWalletNumber):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, repository.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrBillNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrBillAlreadyPaid),
		errors.Is(err, repository.ErrBillCancelled),
		errors.Is(err, repository.ErrBillLocked),
		errors.Is(err, repository.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error(op, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName); err != nil {
		h.respondError(w, err, "register user error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login выполняет аутентификацию пользователя и выпускает токен доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token, err := h.authMiddleware.IssueToken(userID)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

type profileResponse struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	WalletNumber *string `json:"wallet_number"`
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get profile error")
		return
	}

	h.writeJSON(w, http.StatusOK, profileResponse{
		ID:           p.ID,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		WalletNumber: p.WalletNumber,
	})
}

type walletResponse struct {
	WalletNumber   string  `json:"wallet_number"`
	Balance        float64 `json:"balance"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	TotalDeposited float64 `json:"total_deposited"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
	CreatedAt      string  `json:"created_at"`
}

// GetWallet возвращает кошелёк текущего пользователя.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get wallet error")
		return
	}

	h.writeJSON(w, http.StatusOK, walletResponse{
		WalletNumber:   wallet.Number,
		Balance:        money.FromCents(wallet.Balance),
		Currency:       wallet.Currency,
		Status:         string(wallet.Status),
		TotalDeposited: money.FromCents(wallet.TotalDeposited),
		TotalWithdrawn: money.FromCents(wallet.TotalWithdrawn),
		CreatedAt:      wallet.CreatedAt.Format(time.RFC3339),
	})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// Deposit пополняет кошелёк текущего пользователя.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	balance, err := h.service.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(w, err, "deposit error")
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// Withdraw списывает средства с кошелька текущего пользователя.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	balance, err := h.service.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(w, err, "withdraw error")
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

type transferRequest struct {
	WalletNumber string  `json:"wallet_number"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
}

// Transfer переводит средства на другой кошелёк по его номеру.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	balance, err := h.service.Transfer(r.Context(), userID, req.WalletNumber, req.Amount, req.Description)
	if err != nil {
		h.respondError(w, err, "transfer error")
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

type transactionResponse struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Description   string  `json:"description,omitempty"`
	Reference     string  `json:"reference"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	CreatedAt     string  `json:"created_at"`
}

// GetHistory возвращает историю транзакций текущего пользователя.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	f, err := parseHistoryFilter(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	transactions, err := h.service.GetHistory(r.Context(), userID, f)
	if err != nil {
		h.respondError(w, err, "get history error")
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, transactionResponse{
			ID:            t.ID,
			Type:          string(t.Type),
			Amount:        money.FromCents(t.Amount),
			Status:        string(t.Status),
			Description:   t.Description,
			Reference:     t.Reference,
			BalanceBefore: money.FromCents(t.BalanceBefore),
			BalanceAfter:  money.FromCents(t.BalanceAfter),
			CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func parseHistoryFilter(r *http.Request) (service.HistoryFilter, error) {
	var f service.HistoryFilter
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return f, errors.New("invalid limit")
		}
		f.Limit = limit
	}

	if v := q.Get("type"); v != "" {
		t := model.TransactionType(v)
		switch t {
		case model.TransactionTypeDeposit, model.TransactionTypeWithdraw, model.TransactionTypeTransfer:
			f.Type = &t
		default:
			return f, errors.New("invalid type")
		}
	}

	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.Since = &ts
	}

	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.Until = &ts
	}

	return f, nil
}

// GetStats возвращает сводку по кошельку текущего пользователя.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get stats error")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}
