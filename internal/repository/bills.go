package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sanapay/sanapay-system/internal/model"
)

const billColumns = `id, user_id, title, amount, status, category, due_date,
	 notes, account_number, paid_at, transaction_id, created_at, updated_at`

func scanBill(row pgx.Row) (*model.Bill, error) {
	var b model.Bill
	err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Amount, &b.Status, &b.Category,
		&b.DueDate, &b.Notes, &b.AccountNumber, &b.PaidAt, &b.TransactionID,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("scan bill: %w", err)
	}
	return &b, nil
}

// CreateBill сохраняет новый счёт со статусом PENDING.
func (r *PostgresRepository) CreateBill(ctx context.Context, b *model.Bill) (*model.Bill, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO bills (user_id, title, amount, status, category, due_date, notes, account_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+billColumns,
		b.UserID, b.Title, b.Amount, string(model.BillStatusPending), string(b.Category),
		b.DueDate, b.Notes, b.AccountNumber,
	)

	created, err := scanBill(row)
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return created, nil
}

// ListBills возвращает счета пользователя от новых к старым с необязательной
// фильтрацией по статусу и категории.
func (r *PostgresRepository) ListBills(ctx context.Context, userID int64, status *model.BillStatus, category *model.BillCategory) ([]model.Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE user_id = $1
		   AND ($2::text IS NULL OR status = $2)
		   AND ($3::text IS NULL OR category = $3)
		 ORDER BY created_at DESC`,
		userID, (*string)(status), (*string)(category),
	)
	if err != nil {
		return nil, fmt.Errorf("select bills: %w", err)
	}
	defer rows.Close()

	var res []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBill возвращает счёт пользователя по идентификатору.
func (r *PostgresRepository) GetBill(ctx context.Context, userID, billID int64) (*model.Bill, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`,
		billID, userID,
	)
	return scanBill(row)
}

// PromoteOverdueBills переводит просроченные PENDING-счета пользователя в OVERDUE.
// Операция идемпотентна: условие по статусу делает повторное продвижение no-op,
// в том числе при конкурентных чтениях.
func (r *PostgresRepository) PromoteOverdueBills(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE bills
		 SET status = $2, updated_at = now()
		 WHERE user_id = $1 AND status = $3 AND due_date IS NOT NULL AND due_date < now()`,
		userID, string(model.BillStatusOverdue), string(model.BillStatusPending),
	)
	if err != nil {
		return fmt.Errorf("promote overdue bills: %w", err)
	}
	return nil
}

// UpdateBill сохраняет изменяемые поля счёта. Оплаченные счета заблокированы
// от изменений на уровне запроса.
func (r *PostgresRepository) UpdateBill(ctx context.Context, b *model.Bill) (*model.Bill, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE bills
		 SET title = $3, amount = $4, status = $5, category = $6, due_date = $7,
		     notes = $8, account_number = $9, updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND status <> $10
		 RETURNING `+billColumns,
		b.ID, b.UserID, b.Title, b.Amount, string(b.Status), string(b.Category),
		b.DueDate, b.Notes, b.AccountNumber, string(model.BillStatusPaid),
	)

	updated, err := scanBill(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrBillNotFound) {
		return nil, err
	}

	// Строка не изменена: различаем отсутствующий счёт и оплаченный.
	return nil, r.classifyBillRejection(ctx, b.UserID, b.ID)
}

// DeleteBill удаляет счёт пользователя. Оплаченные счета удалить нельзя.
func (r *PostgresRepository) DeleteBill(ctx context.Context, userID, billID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM bills WHERE id = $1 AND user_id = $2 AND status <> $3`,
		billID, userID, string(model.BillStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return r.classifyBillRejection(ctx, userID, billID)
	}

	return nil
}

func (r *PostgresRepository) classifyBillRejection(ctx context.Context, userID, billID int64) error {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM bills WHERE id = $1 AND user_id = $2`,
		billID, userID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBillNotFound
	}
	if err != nil {
		return fmt.Errorf("select bill status: %w", err)
	}

	if model.BillStatus(status) == model.BillStatusPaid {
		return ErrBillLocked
	}

	return ErrBillNotFound
}

// PayBill атомарно списывает сумму счёта с кошелька пользователя, записывает
// транзакцию WITHDRAW и переводит счёт в PAID со ссылкой на созданную транзакцию.
// Возвращает оплаченный счёт и новый баланс кошелька в сантимах.
func (r *PostgresRepository) PayBill(ctx context.Context, userID, billID int64, reference string) (*model.Bill, int64, error) {
	var (
		paid       *model.Bill
		newBalance int64
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Кошелёк блокируется первым; оплата — единственный путь, удерживающий
		// блокировки кошелька и счёта одновременно.
		var walletID, balance int64
		err = tx.QueryRow(ctx,
			`SELECT id, balance FROM ewallet WHERE user_id = $1 FOR UPDATE`,
			userID,
		).Scan(&walletID, &balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		var (
			amount int64
			status string
			title  string
		)
		err = tx.QueryRow(ctx,
			`SELECT amount, status, title FROM bills WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			billID, userID,
		).Scan(&amount, &status, &title)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBillNotFound
		}
		if err != nil {
			return fmt.Errorf("lock bill: %w", err)
		}

		switch model.BillStatus(status) {
		case model.BillStatusPaid:
			return ErrBillAlreadyPaid
		case model.BillStatusCancelled:
			return ErrBillCancelled
		}

		if balance < amount {
			return ErrInsufficientBalance
		}

		after := balance - amount

		_, err = tx.Exec(ctx,
			`UPDATE ewallet
			 SET balance = $2, total_withdrawn = total_withdrawn + $3, updated_at = now()
			 WHERE id = $1`,
			walletID, after, amount,
		)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		txID, err := insertTransaction(ctx, tx, walletID, model.TransactionTypeWithdraw,
			amount, "Bill payment: "+title, reference, balance, after)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`UPDATE bills
			 SET status = $3, paid_at = now(), transaction_id = $4, updated_at = now()
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+billColumns,
			billID, userID, string(model.BillStatusPaid), txID,
		)
		b, err := scanBill(row)
		if err != nil {
			return fmt.Errorf("mark bill paid: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		paid = b
		newBalance = after
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return paid, newBalance, nil
}

// BillStatusCounts содержит количество счетов по статусам и сумму ожидающих оплат.
type BillStatusCounts struct {
	Pending       int64
	Paid          int64
	Overdue       int64
	PendingAmount int64
}

// CountBillsByStatus возвращает счётчики счетов пользователя по статусам.
func (r *PostgresRepository) CountBillsByStatus(ctx context.Context, userID int64) (*BillStatusCounts, error) {
	var c BillStatusCounts
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = $2),
		        COUNT(*) FILTER (WHERE status = $3),
		        COUNT(*) FILTER (WHERE status = $4),
		        COALESCE(SUM(amount) FILTER (WHERE status = $2), 0)
		 FROM bills WHERE user_id = $1`,
		userID, string(model.BillStatusPending), string(model.BillStatusPaid),
		string(model.BillStatusOverdue),
	).Scan(&c.Pending, &c.Paid, &c.Overdue, &c.PendingAmount)
	if err != nil {
		return nil, fmt.Errorf("count bills: %w", err)
	}
	return &c, nil
}

// CategoryAggregate содержит агрегаты счетов по одной категории в сантимах.
type CategoryAggregate struct {
	Category model.BillCategory
	Count    int64
	Total    int64
}

// GroupBillsByCategory возвращает количество и сумму счетов пользователя по категориям.
func (r *PostgresRepository) GroupBillsByCategory(ctx context.Context, userID int64) ([]CategoryAggregate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		 FROM bills
		 WHERE user_id = $1
		 GROUP BY category
		 ORDER BY category`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("group bills: %w", err)
	}
	defer rows.Close()

	var res []CategoryAggregate
	for rows.Next() {
		var a CategoryAggregate
		if err := rows.Scan(&a.Category, &a.Count, &a.Total); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// TopBillsByAmount возвращает крупнейшие по сумме счета пользователя.
func (r *PostgresRepository) TopBillsByAmount(ctx context.Context, userID int64, limit int) ([]model.Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE user_id = $1
		 ORDER BY amount DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select top bills: %w", err)
	}
	defer rows.Close()

	var res []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
