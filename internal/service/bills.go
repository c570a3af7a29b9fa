package service

import (
	"context"
	"time"

	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
)

// BillInput содержит поля нового счёта.
type BillInput struct {
	Title         string
	Amount        float64
	Category      model.BillCategory
	DueDate       *time.Time
	Notes         string
	AccountNumber string
}

// BillUpdateInput содержит изменяемые поля счёта. Обновляются только
// заполненные поля; статус можно сменить только на CANCELLED.
type BillUpdateInput struct {
	Title         *string
	Amount        *float64
	Category      *model.BillCategory
	DueDate       *time.Time
	Notes         *string
	AccountNumber *string
	Status        *model.BillStatus
}

// CreateBill создаёт новый счёт пользователя со статусом PENDING.
func (s *Service) CreateBill(ctx context.Context, userID int64, in BillInput) (*model.Bill, error) {
	cents, err := money.ToCents(in.Amount)
	if err != nil {
		return nil, err
	}

	if !model.IsValidBillCategory(in.Category) {
		return nil, ErrInvalidCategory
	}

	return s.repo.CreateBill(ctx, &model.Bill{
		UserID:        userID,
		Title:         in.Title,
		Amount:        cents,
		Category:      in.Category,
		DueDate:       in.DueDate,
		Notes:         in.Notes,
		AccountNumber: in.AccountNumber,
	})
}

// ListBills возвращает счета пользователя с необязательной фильтрацией по
// статусу и категории. Просроченные PENDING-счета перед выборкой переводятся
// в OVERDUE.
func (s *Service) ListBills(ctx context.Context, userID int64, status *model.BillStatus, category *model.BillCategory) ([]model.Bill, error) {
	if err := s.repo.PromoteOverdueBills(ctx, userID); err != nil {
		return nil, err
	}

	return s.repo.ListBills(ctx, userID, status, category)
}

// GetBill возвращает счёт пользователя. Просроченный PENDING-счёт будет
// возвращён уже как OVERDUE.
func (s *Service) GetBill(ctx context.Context, userID, billID int64) (*model.Bill, error) {
	if err := s.repo.PromoteOverdueBills(ctx, userID); err != nil {
		return nil, err
	}

	return s.repo.GetBill(ctx, userID, billID)
}

// UpdateBill обновляет заполненные поля счёта. Оплаченный счёт изменить нельзя.
func (s *Service) UpdateBill(ctx context.Context, userID, billID int64, in BillUpdateInput) (*model.Bill, error) {
	b, err := s.repo.GetBill(ctx, userID, billID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Amount != nil {
		cents, err := money.ToCents(*in.Amount)
		if err != nil {
			return nil, err
		}
		b.Amount = cents
	}
	if in.Category != nil {
		if !model.IsValidBillCategory(*in.Category) {
			return nil, ErrInvalidCategory
		}
		b.Category = *in.Category
	}
	if in.DueDate != nil {
		b.DueDate = in.DueDate
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if in.AccountNumber != nil {
		b.AccountNumber = *in.AccountNumber
	}
	if in.Status != nil && *in.Status != b.Status {
		if *in.Status != model.BillStatusCancelled {
			return nil, ErrInvalidBillStatus
		}
		b.Status = model.BillStatusCancelled
	}

	return s.repo.UpdateBill(ctx, b)
}

// DeleteBill удаляет счёт пользователя. Оплаченный счёт удалить нельзя.
func (s *Service) DeleteBill(ctx context.Context, userID, billID int64) error {
	return s.repo.DeleteBill(ctx, userID, billID)
}

// PayBillResult содержит оплаченный счёт и остаток на кошельке.
type PayBillResult struct {
	Bill             *model.Bill
	RemainingBalance float64
}

// PayBill оплачивает счёт с кошелька пользователя: списание, транзакция и
// перевод счёта в PAID выполняются атомарно.
func (s *Service) PayBill(ctx context.Context, userID, billID int64) (*PayBillResult, error) {
	bill, balance, err := s.repo.PayBill(ctx, userID, billID, newReference("BILL"))
	if err != nil {
		return nil, err
	}

	return &PayBillResult{
		Bill:             bill,
		RemainingBalance: money.FromCents(balance),
	}, nil
}
