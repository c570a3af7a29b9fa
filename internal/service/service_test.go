package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sanapay/sanapay-system/internal/model"
	"github.com/sanapay/sanapay-system/internal/money"
	"github.com/sanapay/sanapay-system/internal/repository"
)

type stubRepo struct {
	createUserID  int64
	createUserErr error

	userByEmail    *model.User
	userByEmailErr error

	userByID    *model.User
	userByIDErr error

	wallet    *model.Wallet
	walletErr error

	walletByNumber    *model.Wallet
	walletByNumberErr error

	depositBalance int64
	depositErr     error

	withdrawBalance int64
	withdrawErr     error

	transferBalance     int64
	transferErr         error
	transferDescription string

	transactions       []model.Transaction
	transactionsErr    error
	transactionsFilter repository.TransactionFilter

	txCount    int64
	txCountErr error

	sums    map[model.TransactionType]int64
	sumsErr error

	createdBill   *model.Bill
	createBillErr error

	bills    []model.Bill
	billsErr error

	bill    *model.Bill
	billErr error

	promoteCalled bool
	promoteErr    error

	updatedBill   *model.Bill
	updateBillErr error

	deleteBillErr error

	paidBill      *model.Bill
	payBalance    int64
	payBillErr    error
	payReference  string

	billCounts    *repository.BillStatusCounts
	billCountsErr error

	categoryGroups []repository.CategoryAggregate
	categoryErr    error

	topBills    []model.Bill
	topBillsErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, email string, passwordHash []byte, firstName, lastName string) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userByEmail, s.userByEmailErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userByID, s.userByIDErr
}

func (s *stubRepo) GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.wallet, s.walletErr
}

func (s *stubRepo) GetWalletByNumber(ctx context.Context, number string) (*model.Wallet, error) {
	return s.walletByNumber, s.walletByNumberErr
}

func (s *stubRepo) Deposit(ctx context.Context, userID, amount int64, newNumber, reference, description string) (int64, error) {
	return s.depositBalance, s.depositErr
}

func (s *stubRepo) Withdraw(ctx context.Context, userID, amount int64, reference, description string) (int64, error) {
	return s.withdrawBalance, s.withdrawErr
}

func (s *stubRepo) Transfer(ctx context.Context, userID int64, targetNumber string, amount int64, reference, description string) (int64, error) {
	s.transferDescription = description
	return s.transferBalance, s.transferErr
}

func (s *stubRepo) ListTransactions(ctx context.Context, walletID int64, f repository.TransactionFilter) ([]model.Transaction, error) {
	s.transactionsFilter = f
	return s.transactions, s.transactionsErr
}

func (s *stubRepo) CountTransactions(ctx context.Context, walletID int64) (int64, error) {
	return s.txCount, s.txCountErr
}

func (s *stubRepo) SumTransactions(ctx context.Context, walletID int64, ttype model.TransactionType, from, to *time.Time) (int64, error) {
	return s.sums[ttype], s.sumsErr
}

func (s *stubRepo) CreateBill(ctx context.Context, b *model.Bill) (*model.Bill, error) {
	if s.createBillErr != nil {
		return nil, s.createBillErr
	}
	if s.createdBill != nil {
		return s.createdBill, nil
	}
	return b, nil
}

func (s *stubRepo) ListBills(ctx context.Context, userID int64, status *model.BillStatus, category *model.BillCategory) ([]model.Bill, error) {
	return s.bills, s.billsErr
}

func (s *stubRepo) GetBill(ctx context.Context, userID, billID int64) (*model.Bill, error) {
	return s.bill, s.billErr
}

func (s *stubRepo) PromoteOverdueBills(ctx context.Context, userID int64) error {
	s.promoteCalled = true
	return s.promoteErr
}

func (s *stubRepo) UpdateBill(ctx context.Context, b *model.Bill) (*model.Bill, error) {
	if s.updateBillErr != nil {
		return nil, s.updateBillErr
	}
	if s.updatedBill != nil {
		return s.updatedBill, nil
	}
	return b, nil
}

func (s *stubRepo) DeleteBill(ctx context.Context, userID, billID int64) error {
	return s.deleteBillErr
}

func (s *stubRepo) PayBill(ctx context.Context, userID, billID int64, reference string) (*model.Bill, int64, error) {
	s.payReference = reference
	return s.paidBill, s.payBalance, s.payBillErr
}

func (s *stubRepo) CountBillsByStatus(ctx context.Context, userID int64) (*repository.BillStatusCounts, error) {
	return s.billCounts, s.billCountsErr
}

func (s *stubRepo) GroupBillsByCategory(ctx context.Context, userID int64) ([]repository.CategoryAggregate, error) {
	return s.categoryGroups, s.categoryErr
}

func (s *stubRepo) TopBillsByAmount(ctx context.Context, userID int64, limit int) ([]model.Bill, error) {
	return s.topBills, s.topBillsErr
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo)

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "pass", "", "")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser_WrongPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	repo := &stubRepo{
		userByEmail: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashed,
		},
	}
	svc := NewService(repo)

	_, err = svc.AuthenticateUser(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUser_UnknownUser(t *testing.T) {
	repo := &stubRepo{
		userByEmailErr: repository.ErrUserNotFound,
	}
	svc := NewService(repo)

	_, err := svc.AuthenticateUser(context.Background(), "user@example.com", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestDeposit_InvalidAmount(t *testing.T) {
	svc := NewService(&stubRepo{})

	for _, amount := range []float64{0, -10, 0.001} {
		_, err := svc.Deposit(context.Background(), 1, amount)
		if !errors.Is(err, money.ErrInvalidAmount) {
			t.Fatalf("Deposit(%v): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestDeposit_ConvertsToMajorUnits(t *testing.T) {
	repo := &stubRepo{
		depositBalance: 12345,
	}
	svc := NewService(repo)

	balance, err := svc.Deposit(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if balance != 123.45 {
		t.Fatalf("balance = %v, want 123.45", balance)
	}
}

func TestTransfer_InvalidWalletNumber(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.Transfer(context.Background(), 1, "12345", 10, "")
	if !errors.Is(err, ErrInvalidWalletNumber) {
		t.Fatalf("expected ErrInvalidWalletNumber, got %v", err)
	}
}

func TestTransfer_DefaultDescription(t *testing.T) {
	repo := &stubRepo{
		walletByNumber:  &model.Wallet{ID: 2, UserID: 99, Number: "SP-1700000000000"},
		transferBalance: 500,
	}
	svc := NewService(repo)

	_, err := svc.Transfer(context.Background(), 1, "SP-1700000000000", 10, "")
	if err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
	if repo.transferDescription != "Transfer" {
		t.Fatalf("description = %q, want Transfer", repo.transferDescription)
	}
}

func TestTransfer_OwnWalletRejected(t *testing.T) {
	repo := &stubRepo{
		walletByNumber: &model.Wallet{ID: 2, UserID: 1, Number: "SP-1700000000000"},
	}
	svc := NewService(repo)

	_, err := svc.Transfer(context.Background(), 1, "SP-1700000000000", 10, "")
	if !errors.Is(err, repository.ErrSameWallet) {
		t.Fatalf("expected ErrSameWallet, got %v", err)
	}
}

func TestTransfer_UnknownTarget(t *testing.T) {
	repo := &stubRepo{
		walletByNumberErr: repository.ErrWalletNotFound,
	}
	svc := NewService(repo)

	_, err := svc.Transfer(context.Background(), 1, "SP-1700000000000", 10, "")
	if !errors.Is(err, repository.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestGetHistory_DefaultLimit(t *testing.T) {
	repo := &stubRepo{
		wallet: &model.Wallet{ID: 1},
	}
	svc := NewService(repo)

	_, err := svc.GetHistory(context.Background(), 1, HistoryFilter{})
	if err != nil {
		t.Fatalf("GetHistory error: %v", err)
	}
	if repo.transactionsFilter.Limit != defaultHistoryLimit {
		t.Fatalf("limit = %d, want %d", repo.transactionsFilter.Limit, defaultHistoryLimit)
	}
}

func TestGetHistory_NoWallet(t *testing.T) {
	repo := &stubRepo{
		walletErr: repository.ErrWalletNotFound,
	}
	svc := NewService(repo)

	_, err := svc.GetHistory(context.Background(), 1, HistoryFilter{})
	if !errors.Is(err, repository.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestGetStats_NoWalletReturnsZero(t *testing.T) {
	repo := &stubRepo{
		walletErr: repository.ErrWalletNotFound,
	}
	svc := NewService(repo)

	stats, err := svc.GetStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if *stats != (model.WalletStats{}) {
		t.Fatalf("stats = %+v, want zero value", stats)
	}
}

func TestGetStats_ConvertsToMajorUnits(t *testing.T) {
	repo := &stubRepo{
		wallet: &model.Wallet{
			ID:             1,
			Balance:        15000,
			TotalDeposited: 20000,
			TotalWithdrawn: 5000,
		},
		txCount: 7,
	}
	svc := NewService(repo)

	stats, err := svc.GetStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.CurrentBalance != 150 {
		t.Fatalf("CurrentBalance = %v, want 150", stats.CurrentBalance)
	}
	if stats.TotalDeposited != 200 {
		t.Fatalf("TotalDeposited = %v, want 200", stats.TotalDeposited)
	}
	if stats.TotalTransactions != 7 {
		t.Fatalf("TotalTransactions = %d, want 7", stats.TotalTransactions)
	}
}

func TestCreateBill_InvalidCategory(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.CreateBill(context.Background(), 1, BillInput{
		Title:    "Bill",
		Amount:   10,
		Category: "GROCERIES",
	})
	if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestGetBill_PromotesOverdueFirst(t *testing.T) {
	repo := &stubRepo{
		bill: &model.Bill{ID: 5, Status: model.BillStatusOverdue},
	}
	svc := NewService(repo)

	b, err := svc.GetBill(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetBill error: %v", err)
	}
	if !repo.promoteCalled {
		t.Fatalf("overdue promotion was not called before read")
	}
	if b.Status != model.BillStatusOverdue {
		t.Fatalf("status = %s, want OVERDUE", b.Status)
	}
}

func TestUpdateBill_RejectsStatusChangeToPaid(t *testing.T) {
	repo := &stubRepo{
		bill: &model.Bill{ID: 5, Status: model.BillStatusPending},
	}
	svc := NewService(repo)

	paid := model.BillStatusPaid
	_, err := svc.UpdateBill(context.Background(), 1, 5, BillUpdateInput{Status: &paid})
	if !errors.Is(err, ErrInvalidBillStatus) {
		t.Fatalf("expected ErrInvalidBillStatus, got %v", err)
	}
}

func TestUpdateBill_AllowsCancellation(t *testing.T) {
	repo := &stubRepo{
		bill: &model.Bill{ID: 5, Status: model.BillStatusPending},
	}
	svc := NewService(repo)

	cancelled := model.BillStatusCancelled
	b, err := svc.UpdateBill(context.Background(), 1, 5, BillUpdateInput{Status: &cancelled})
	if err != nil {
		t.Fatalf("UpdateBill error: %v", err)
	}
	if b.Status != model.BillStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", b.Status)
	}
}

func TestUpdateBill_MergesOnlyProvidedFields(t *testing.T) {
	repo := &stubRepo{
		bill: &model.Bill{
			ID:       5,
			Title:    "Old title",
			Amount:   10000,
			Status:   model.BillStatusPending,
			Category: model.BillCategoryWater,
			Notes:    "keep me",
		},
	}
	svc := NewService(repo)

	title := "New title"
	amount := 250.0
	b, err := svc.UpdateBill(context.Background(), 1, 5, BillUpdateInput{
		Title:  &title,
		Amount: &amount,
	})
	if err != nil {
		t.Fatalf("UpdateBill error: %v", err)
	}
	if b.Title != "New title" {
		t.Fatalf("title = %q, want New title", b.Title)
	}
	if b.Amount != 25000 {
		t.Fatalf("amount = %d, want 25000", b.Amount)
	}
	if b.Notes != "keep me" {
		t.Fatalf("notes = %q, want keep me", b.Notes)
	}
	if b.Category != model.BillCategoryWater {
		t.Fatalf("category = %s, want WATER", b.Category)
	}
}

func TestPayBill_ReturnsRemainingBalance(t *testing.T) {
	repo := &stubRepo{
		paidBill:   &model.Bill{ID: 5, Status: model.BillStatusPaid},
		payBalance: 7550,
	}
	svc := NewService(repo)

	res, err := svc.PayBill(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("PayBill error: %v", err)
	}
	if res.RemainingBalance != 75.5 {
		t.Fatalf("remaining balance = %v, want 75.5", res.RemainingBalance)
	}
	if !strings.HasPrefix(repo.payReference, "BILL-") {
		t.Fatalf("reference = %q, want BILL- prefix", repo.payReference)
	}
}

func TestGetSummary_NoWalletReturnsZero(t *testing.T) {
	repo := &stubRepo{
		walletErr: repository.ErrWalletNotFound,
	}
	svc := NewService(repo)

	summary, err := svc.GetSummary(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSummary error: %v", err)
	}
	if *summary != (model.Summary{}) {
		t.Fatalf("summary = %+v, want zero value", summary)
	}
}

func TestGetSummary_AggregatesBillsAndTransactions(t *testing.T) {
	repo := &stubRepo{
		wallet: &model.Wallet{ID: 1, Balance: 12050},
		sums: map[model.TransactionType]int64{
			model.TransactionTypeDeposit:  50000,
			model.TransactionTypeWithdraw: 37950,
		},
		txCount: 4,
		billCounts: &repository.BillStatusCounts{
			Pending:       2,
			Paid:          1,
			Overdue:       1,
			PendingAmount: 30000,
		},
	}
	svc := NewService(repo)

	summary, err := svc.GetSummary(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSummary error: %v", err)
	}
	if summary.Balance != 120.5 {
		t.Fatalf("balance = %v, want 120.5", summary.Balance)
	}
	if summary.TotalDeposits != 500 {
		t.Fatalf("deposits = %v, want 500", summary.TotalDeposits)
	}
	if summary.Bills.TotalPendingAmount != 300 {
		t.Fatalf("pending amount = %v, want 300", summary.Bills.TotalPendingAmount)
	}
}

func TestGetMonthlyAnalytics_TwelveBucketsOldestFirst(t *testing.T) {
	repo := &stubRepo{
		wallet: &model.Wallet{ID: 1},
		sums: map[model.TransactionType]int64{
			model.TransactionTypeDeposit:  10000,
			model.TransactionTypeWithdraw: 2500,
		},
	}
	svc := NewService(repo)

	buckets, err := svc.GetMonthlyAnalytics(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetMonthlyAnalytics error: %v", err)
	}
	if len(buckets) != trailingMonths {
		t.Fatalf("buckets = %d, want %d", len(buckets), trailingMonths)
	}

	now := time.Now()
	wantLast := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("Jan 2006")
	if buckets[len(buckets)-1].Month != wantLast {
		t.Fatalf("last bucket = %q, want %q", buckets[len(buckets)-1].Month, wantLast)
	}
	if buckets[0].Net != 75 {
		t.Fatalf("net = %v, want 75", buckets[0].Net)
	}
}

func TestGetMonthlyAnalytics_NoWallet(t *testing.T) {
	repo := &stubRepo{
		walletErr: repository.ErrWalletNotFound,
	}
	svc := NewService(repo)

	buckets, err := svc.GetMonthlyAnalytics(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetMonthlyAnalytics error: %v", err)
	}
	if buckets == nil || len(buckets) != 0 {
		t.Fatalf("buckets = %v, want empty non-nil slice", buckets)
	}
}

func TestGetYearlyAnalytics_ThreeYears(t *testing.T) {
	repo := &stubRepo{
		wallet: &model.Wallet{ID: 1},
	}
	svc := NewService(repo)

	buckets, err := svc.GetYearlyAnalytics(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetYearlyAnalytics error: %v", err)
	}
	if len(buckets) != trailingYears {
		t.Fatalf("buckets = %d, want %d", len(buckets), trailingYears)
	}

	wantLast := strconv.Itoa(time.Now().Year())
	if buckets[len(buckets)-1].Year != wantLast {
		t.Fatalf("last bucket = %q, want %q", buckets[len(buckets)-1].Year, wantLast)
	}
}

func TestGetCategoryAnalytics_Averages(t *testing.T) {
	repo := &stubRepo{
		categoryGroups: []repository.CategoryAggregate{
			{Category: model.BillCategoryElectricity, Count: 2, Total: 30000},
			{Category: model.BillCategoryInternet, Count: 1, Total: 9999},
		},
		topBills: []model.Bill{
			{ID: 1, Title: "Big bill", Amount: 20000, Category: model.BillCategoryElectricity, Status: model.BillStatusPaid},
		},
	}
	svc := NewService(repo)

	report, err := svc.GetCategoryAnalytics(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetCategoryAnalytics error: %v", err)
	}
	if len(report.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(report.Categories))
	}
	if report.Categories[0].Average != 150 {
		t.Fatalf("average = %v, want 150", report.Categories[0].Average)
	}
	if len(report.TopBills) != 1 || report.TopBills[0].Amount != 200 {
		t.Fatalf("unexpected top bills: %+v", report.TopBills)
	}
}

func TestNewWalletNumberFormat(t *testing.T) {
	n := newWalletNumber()
	if !strings.HasPrefix(n, "SP-") {
		t.Fatalf("wallet number = %q, want SP- prefix", n)
	}
}
