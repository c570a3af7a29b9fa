package service

import (
	"context"
	"errors"
	"time"

	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
	"github.com/sanapay/sanapay-system/internal/repository"
	"github.com/sanapay/sanapay-system/internal/validation"
)

const defaultHistoryLimit = 50

// GetWallet возвращает кошелёк пользователя.
func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.repo.GetWalletByUser(ctx, userID)
}

// Deposit пополняет кошелёк пользователя и возвращает новый баланс.
// При первом депозите кошелёк создаётся автоматически.
func (s *Service) Deposit(ctx context.Context, userID int64, amount float64) (float64, error) {
	cents, err := money.ToCents(amount)
	if err != nil {
		return 0, err
	}

	balance, err := s.repo.Deposit(ctx, userID, cents, newWalletNumber(), newReference("DEP"), "")
	if err != nil {
		return 0, err
	}

	return money.FromCents(balance), nil
}

// Withdraw списывает средства с кошелька пользователя и возвращает новый баланс.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount float64) (float64, error) {
	cents, err := money.ToCents(amount)
	if err != nil {
		return 0, err
	}

	balance, err := s.repo.Withdraw(ctx, userID, cents, newReference("WDR"), "")
	if err != nil {
		return 0, err
	}

	return money.FromCents(balance), nil
}

// Transfer переводит средства на кошелёк с указанным номером и возвращает
// новый баланс отправителя.
func (s *Service) Transfer(ctx context.Context, userID int64, targetNumber string, amount float64, description string) (float64, error) {
	cents, err := money.ToCents(amount)
	if err != nil {
		return 0, err
	}

	if !validation.IsValidWalletNumber(targetNumber) {
		return 0, ErrInvalidWalletNumber
	}

	// Получатель разрешается до открытия транзакции: неизвестный номер и
	// перевод самому себе отсекаются без блокировки строк кошельков.
	target, err := s.repo.GetWalletByNumber(ctx, targetNumber)
	if err != nil {
		return 0, err
	}
	if target.UserID == userID {
		return 0, repository.ErrSameWallet
	}

	if description == "" {
		description = "Transfer"
	}

	balance, err := s.repo.Transfer(ctx, userID, targetNumber, cents, newReference("TRF"), description)
	if err != nil {
		return 0, err
	}

	return money.FromCents(balance), nil
}

// HistoryFilter задаёт условия выборки истории транзакций.
type HistoryFilter struct {
	Since *time.Time
	Until *time.Time
	Type  *model.TransactionType
	Limit int
}

// GetHistory возвращает историю транзакций кошелька пользователя от новых к старым.
func (s *Service) GetHistory(ctx context.Context, userID int64, f HistoryFilter) ([]model.Transaction, error) {
	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return s.repo.ListTransactions(ctx, w.ID, repository.TransactionFilter{
		Since: f.Since,
		Until: f.Until,
		Type:  f.Type,
		Limit: limit,
	})
}

// GetStats возвращает сводку по кошельку. Для пользователя без кошелька
// возвращается нулевая сводка.
func (s *Service) GetStats(ctx context.Context, userID int64) (*model.WalletStats, error) {
	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return &model.WalletStats{}, nil
		}
		return nil, err
	}

	count, err := s.repo.CountTransactions(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	return &model.WalletStats{
		CurrentBalance:    money.FromCents(w.Balance),
		TotalDeposited:    money.FromCents(w.TotalDeposited),
		TotalWithdrawn:    money.FromCents(w.TotalWithdrawn),
		TotalTransactions: count,
	}, nil
}
