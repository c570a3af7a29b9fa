// Package service реализует бизнес-логику платёжного сервиса sanapay.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidWalletNumber возвращается для номера кошелька неверного формата.
	ErrInvalidWalletNumber = errors.New("invalid wallet number")
	// ErrInvalidCategory возвращается для неизвестной категории счёта.
	ErrInvalidCategory = errors.New("invalid bill category")
	// ErrInvalidBillStatus возвращается при недопустимой смене статуса счёта:
	// через обновление счёт можно только отменить.
	ErrInvalidBillStatus = errors.New("unsupported bill status change")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, email string, passwordHash []byte, firstName, lastName string) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error)
	GetWalletByNumber(ctx context.Context, number string) (*model.Wallet, error)
	Deposit(ctx context.Context, userID, amount int64, newNumber, reference, description string) (int64, error)
	Withdraw(ctx context.Context, userID, amount int64, reference, description string) (int64, error)
	Transfer(ctx context.Context, userID int64, targetNumber string, amount int64, reference, description string) (int64, error)
	ListTransactions(ctx context.Context, walletID int64, f repository.TransactionFilter) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, walletID int64) (int64, error)
	SumTransactions(ctx context.Context, walletID int64, ttype model.TransactionType, from, to *time.Time) (int64, error)

	CreateBill(ctx context.Context, b *model.Bill) (*model.Bill, error)
	ListBills(ctx context.Context, userID int64, status *model.BillStatus, category *model.BillCategory) ([]model.Bill, error)
	GetBill(ctx context.Context, userID, billID int64) (*model.Bill, error)
	PromoteOverdueBills(ctx context.Context, userID int64) error
	UpdateBill(ctx context.Context, b *model.Bill) (*model.Bill, error)
	DeleteBill(ctx context.Context, userID, billID int64) error
	PayBill(ctx context.Context, userID, billID int64, reference string) (*model.Bill, int64, error)
	CountBillsByStatus(ctx context.Context, userID int64) (*repository.BillStatusCounts, error)
	GroupBillsByCategory(ctx context.Context, userID int64) ([]repository.CategoryAggregate, error)
	TopBillsByAmount(ctx context.Context, userID int64, limit int) ([]model.Bill, error)
}

// Service содержит бизнес-логику платёжного сервиса sanapay.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password, firstName, lastName string) (int64, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, email, hashed, firstName, lastName)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (int64, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

// Profile содержит публичный профиль пользователя.
type Profile struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	WalletNumber *string
}

// GetProfile возвращает профиль пользователя. Номер кошелька отсутствует,
// пока кошелёк не создан первым депозитом.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}

	w, err := s.repo.GetWalletByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrWalletNotFound) {
			return nil, err
		}
		return p, nil
	}

	p.WalletNumber = &w.Number
	return p, nil
}

// newWalletNumber генерирует публичный номер кошелька в формате SP-<метка времени>.
func newWalletNumber() string {
	return fmt.Sprintf("SP-%d", time.Now().UnixNano())
}

// newReference генерирует уникальный тег операции. Суффикс исключает коллизии
// операций в пределах одной миллисекунды.
func newReference(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
