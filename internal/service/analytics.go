package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
	"github.com/sanapay/sanapay-system/internal/repository"
)

const (
	trailingMonths = 12
	trailingYears  = 3
	topBillsLimit  = 5
)

// GetSummary возвращает общую сводку по пользователю: баланс, суммы завершённых
// депозитов и списаний, количество транзакций и счётчики счетов по статусам.
// Для пользователя без кошелька возвращается нулевая сводка.
func (s *Service) GetSummary(ctx context.Context, userID int64) (*model.Summary, error) {
	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return &model.Summary{}, nil
		}
		return nil, err
	}

	deposits, err := s.repo.SumTransactions(ctx, w.ID, model.TransactionTypeDeposit, nil, nil)
	if err != nil {
		return nil, err
	}

	withdrawals, err := s.repo.SumTransactions(ctx, w.ID, model.TransactionTypeWithdraw, nil, nil)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountTransactions(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	bills, err := s.repo.CountBillsByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Summary{
		Balance:          money.FromCents(w.Balance),
		TotalDeposits:    money.FromCents(deposits),
		TotalWithdrawals: money.FromCents(withdrawals),
		TransactionCount: count,
		Bills: model.BillsSummary{
			Pending:            bills.Pending,
			Paid:               bills.Paid,
			Overdue:            bills.Overdue,
			TotalPendingAmount: money.FromCents(bills.PendingAmount),
		},
	}, nil
}

// GetMonthlyAnalytics возвращает агрегаты движения средств за последние 12
// календарных месяцев, включая текущий, от старых к новым. Каждый месяц
// считается независимо; согласованного снимка по всем корзинам не требуется.
func (s *Service) GetMonthlyAnalytics(ctx context.Context, userID int64) ([]model.MonthBucket, error) {
	buckets := make([]model.MonthBucket, 0, trailingMonths)

	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return buckets, nil
		}
		return nil, err
	}

	now := time.Now()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for i := trailingMonths - 1; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		deposits, withdrawals, err := s.sumRange(ctx, w.ID, start, end)
		if err != nil {
			return nil, err
		}

		buckets = append(buckets, model.MonthBucket{
			Month:       start.Format("Jan 2006"),
			Deposits:    deposits,
			Withdrawals: withdrawals,
			Net:         money.Round2(deposits - withdrawals),
		})
	}

	return buckets, nil
}

// GetYearlyAnalytics возвращает агрегаты движения средств за текущий и два
// предыдущих календарных года, от старых к новым.
func (s *Service) GetYearlyAnalytics(ctx context.Context, userID int64) ([]model.YearBucket, error) {
	buckets := make([]model.YearBucket, 0, trailingYears)

	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return buckets, nil
		}
		return nil, err
	}

	now := time.Now()

	for year := now.Year() - trailingYears + 1; year <= now.Year(); year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(1, 0, 0)

		deposits, withdrawals, err := s.sumRange(ctx, w.ID, start, end)
		if err != nil {
			return nil, err
		}

		buckets = append(buckets, model.YearBucket{
			Year:        strconv.Itoa(year),
			Deposits:    deposits,
			Withdrawals: withdrawals,
			Net:         money.Round2(deposits - withdrawals),
		})
	}

	return buckets, nil
}

func (s *Service) sumRange(ctx context.Context, walletID int64, start, end time.Time) (float64, float64, error) {
	deposits, err := s.repo.SumTransactions(ctx, walletID, model.TransactionTypeDeposit, &start, &end)
	if err != nil {
		return 0, 0, err
	}

	withdrawals, err := s.repo.SumTransactions(ctx, walletID, model.TransactionTypeWithdraw, &start, &end)
	if err != nil {
		return 0, 0, err
	}

	return money.FromCents(deposits), money.FromCents(withdrawals), nil
}

// GetCategoryAnalytics возвращает агрегаты счетов по категориям и пять
// крупнейших по сумме счетов пользователя.
func (s *Service) GetCategoryAnalytics(ctx context.Context, userID int64) (*model.CategoryReport, error) {
	groups, err := s.repo.GroupBillsByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}

	categories := make([]model.CategoryStat, 0, len(groups))
	for _, g := range groups {
		total := money.FromCents(g.Total)

		average := 0.0
		if g.Count > 0 {
			average = money.Round2(total / float64(g.Count))
		}

		categories = append(categories, model.CategoryStat{
			Category: g.Category,
			Count:    g.Count,
			Total:    total,
			Average:  average,
		})
	}

	bills, err := s.repo.TopBillsByAmount(ctx, userID, topBillsLimit)
	if err != nil {
		return nil, err
	}

	topBills := make([]model.TopBill, 0, len(bills))
	for _, b := range bills {
		topBills = append(topBills, model.TopBill{
			ID:       b.ID,
			Title:    b.Title,
			Amount:   money.FromCents(b.Amount),
			Category: b.Category,
			Status:   b.Status,
		})
	}

	return &model.CategoryReport{
		Categories: categories,
		TopBills:   topBills,
	}, nil
}
