// Package model содержит доменные сущности платёжного сервиса sanapay.
package model

import "time"

// User представляет зарегистрированного пользователя сервиса.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// WalletStatus описывает состояние кошелька.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "ACTIVE"
	WalletStatusSuspended WalletStatus = "SUSPENDED"
	WalletStatusClosed    WalletStatus = "CLOSED"
)

// DefaultCurrency — единственная валюта, поддерживаемая сервисом.
const DefaultCurrency = "MAD"

// Wallet представляет кошелёк пользователя. Баланс и накопительные итоги
// хранятся в сантимах (минорных единицах).
type Wallet struct {
	ID             int64
	Number         string
	UserID         int64
	Balance        int64
	Currency       string
	Status         WalletStatus
	TotalDeposited int64
	TotalWithdrawn int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionType описывает тип движения средств.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// TransactionStatus описывает статус транзакции. Сервис никогда не сохраняет
// транзакции со статусом FAILED: все проверки выполняются до записи.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction представляет неизменяемую запись журнала движения средств.
// Amount всегда положительный, направление движения определяется снимками
// BalanceBefore/BalanceAfter.
type Transaction struct {
	ID            int64
	WalletID      int64
	Type          TransactionType
	Amount        int64
	Status        TransactionStatus
	Description   string
	Reference     string
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}

// BillStatus описывает состояние счёта на оплату.
type BillStatus string

const (
	BillStatusPending   BillStatus = "PENDING"
	BillStatusPaid      BillStatus = "PAID"
	BillStatusOverdue   BillStatus = "OVERDUE"
	BillStatusCancelled BillStatus = "CANCELLED"
)

// BillCategory описывает категорию счёта.
type BillCategory string

const (
	BillCategoryElectricity  BillCategory = "ELECTRICITY"
	BillCategoryWater        BillCategory = "WATER"
	BillCategoryInternet     BillCategory = "INTERNET"
	BillCategoryPhone        BillCategory = "PHONE"
	BillCategoryGas          BillCategory = "GAS"
	BillCategoryInsurance    BillCategory = "INSURANCE"
	BillCategorySubscription BillCategory = "SUBSCRIPTION"
	BillCategoryRent         BillCategory = "RENT"
	BillCategoryOther        BillCategory = "OTHER"
)

// IsValidBillStatus сообщает, входит ли значение в допустимый набор статусов.
func IsValidBillStatus(s BillStatus) bool {
	switch s {
	case BillStatusPending, BillStatusPaid, BillStatusOverdue, BillStatusCancelled:
		return true
	}
	return false
}

// IsValidBillCategory сообщает, входит ли значение в допустимый набор категорий.
func IsValidBillCategory(c BillCategory) bool {
	switch c {
	case BillCategoryElectricity, BillCategoryWater, BillCategoryInternet,
		BillCategoryPhone, BillCategoryGas, BillCategoryInsurance,
		BillCategorySubscription, BillCategoryRent, BillCategoryOther:
		return true
	}
	return false
}

// Bill представляет счёт на оплату, принадлежащий пользователю.
// Amount хранится в сантимах. TransactionID ссылается на транзакцию,
// созданную при оплате.
type Bill struct {
	ID            int64
	UserID        int64
	Title         string
	Amount        int64
	Status        BillStatus
	Category      BillCategory
	DueDate       *time.Time
	Notes         string
	AccountNumber string
	PaidAt        *time.Time
	TransactionID *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WalletStats содержит сводку по кошельку для дашборда.
type WalletStats struct {
	CurrentBalance    float64 `json:"current_balance"`
	TotalDeposited    float64 `json:"total_deposited"`
	TotalWithdrawn    float64 `json:"total_withdrawn"`
	TotalTransactions int64   `json:"total_transactions"`
}

// BillsSummary содержит счётчики счетов по статусам.
type BillsSummary struct {
	Pending            int64   `json:"pending"`
	Paid               int64   `json:"paid"`
	Overdue            int64   `json:"overdue"`
	TotalPendingAmount float64 `json:"total_pending_amount"`
}

// Summary содержит общую сводку по пользователю для аналитики.
type Summary struct {
	Balance          float64      `json:"balance"`
	TotalDeposits    float64      `json:"total_deposits"`
	TotalWithdrawals float64      `json:"total_withdrawals"`
	TransactionCount int64        `json:"transaction_count"`
	Bills            BillsSummary `json:"bills"`
}

// MonthBucket содержит агрегаты движения средств за один календарный месяц.
type MonthBucket struct {
	Month       string  `json:"month"`
	Deposits    float64 `json:"deposits"`
	Withdrawals float64 `json:"withdrawals"`
	Net         float64 `json:"net"`
}

// YearBucket содержит агрегаты движения средств за один календарный год.
type YearBucket struct {
	Year        string  `json:"year"`
	Deposits    float64 `json:"deposits"`
	Withdrawals float64 `json:"withdrawals"`
	Net         float64 `json:"net"`
}

// CategoryStat содержит агрегаты счетов по одной категории.
type CategoryStat struct {
	Category BillCategory `json:"category"`
	Count    int64        `json:"count"`
	Total    float64      `json:"total"`
	Average  float64      `json:"average"`
}

// TopBill содержит краткое представление счёта для списка крупнейших счетов.
type TopBill struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Amount   float64      `json:"amount"`
	Category BillCategory `json:"category"`
	Status   BillStatus   `json:"status"`
}

// CategoryReport содержит агрегаты счетов по категориям и крупнейшие счета.
type CategoryReport struct {
	Categories []CategoryStat `json:"categories"`
	TopBills   []TopBill      `json:"top_bills"`
}
