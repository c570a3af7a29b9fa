package handler

import (
	"net/http"

	"github.com/sanapay/sanapay-system/internal/middleware"
	"github.com/sanapay/sanapay-system/internal/model"
)

// GetSummary возвращает сводную финансовую статистику пользователя.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	summary, err := h.service.GetSummary(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get summary error")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

type monthlyResponse struct {
	Months []model.MonthBucket `json:"months"`
}

// GetMonthly возвращает помесячную аналитику за последние двенадцать месяцев.
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	months, err := h.service.GetMonthlyAnalytics(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get monthly analytics error")
		return
	}

	h.writeJSON(w, http.StatusOK, monthlyResponse{Months: months})
}

type yearlyResponse struct {
	Years []model.YearBucket `json:"years"`
}

// GetYearly возвращает погодовую аналитику за последние три года.
func (h *Handler) GetYearly(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	years, err := h.service.GetYearlyAnalytics(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get yearly analytics error")
		return
	}

	h.writeJSON(w, http.StatusOK, yearlyResponse{Years: years})
}

// GetCategories возвращает разбивку расходов на счета по категориям.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	report, err := h.service.GetCategoryAnalytics(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get category analytics error")
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}
