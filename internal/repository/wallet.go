package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sanapay/sanapay-system/internal/model"
)

const walletColumns = `id, wallet_number, user_id, balance, currency, status,
	 total_deposited, total_withdrawn, created_at, updated_at`

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.Number, &w.UserID, &w.Balance, &w.Currency, &w.Status,
		&w.TotalDeposited, &w.TotalWithdrawn, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return &w, nil
}

// GetWalletByUser возвращает кошелёк пользователя.
func (r *PostgresRepository) GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM ewallet WHERE user_id = $1`,
		userID,
	)
	return scanWallet(row)
}

// GetWalletByNumber возвращает кошелёк по его публичному номеру.
func (r *PostgresRepository) GetWalletByNumber(ctx context.Context, number string) (*model.Wallet, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM ewallet WHERE wallet_number = $1`,
		number,
	)
	return scanWallet(row)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, walletID int64, ttype model.TransactionType, amount int64, description, reference string, before, after int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions (wallet_id, type, amount, status, description, reference, balance_before, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		walletID, string(ttype), amount, string(model.TransactionStatusCompleted),
		description, reference, before, after,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// Deposit атомарно увеличивает баланс кошелька и записывает транзакцию DEPOSIT.
// Если кошелька ещё нет, он создаётся с номером newNumber и нулевым балансом.
// Возвращает новый баланс в сантимах.
func (r *PostgresRepository) Deposit(ctx context.Context, userID, amount int64, newNumber, reference, description string) (int64, error) {
	var newBalance int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем строку кошелька на время проверки и изменения баланса.
		var walletID, balance int64
		err = tx.QueryRow(ctx,
			`SELECT id, balance FROM ewallet WHERE user_id = $1 FOR UPDATE`,
			userID,
		).Scan(&walletID, &balance)
		if errors.Is(err, pgx.ErrNoRows) {
			// Первый депозит: кошелёк создаётся лениво.
			err = tx.QueryRow(ctx,
				`INSERT INTO ewallet (wallet_number, user_id, currency, status)
				 VALUES ($1, $2, $3, $4) RETURNING id, balance`,
				newNumber, userID, model.DefaultCurrency, string(model.WalletStatusActive),
			).Scan(&walletID, &balance)
		}
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		after := balance + amount

		_, err = tx.Exec(ctx,
			`UPDATE ewallet
			 SET balance = $2, total_deposited = total_deposited + $3, updated_at = now()
			 WHERE id = $1`,
			walletID, after, amount,
		)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		if _, err := insertTransaction(ctx, tx, walletID, model.TransactionTypeDeposit, amount, description, reference, balance, after); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		newBalance = after
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Withdraw атомарно уменьшает баланс кошелька и записывает транзакцию WITHDRAW.
// Возвращает новый баланс в сантимах.
func (r *PostgresRepository) Withdraw(ctx context.Context, userID, amount int64, reference, description string) (int64, error) {
	var newBalance int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

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

		if _, err := insertTransaction(ctx, tx, walletID, model.TransactionTypeWithdraw, amount, description, reference, balance, after); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		newBalance = after
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Transfer атомарно переводит средства между двумя кошельками: дебет отправителя,
// кредит получателя и две транзакции TRANSFER с общим reference фиксируются в одной
// транзакции БД. Возвращает новый баланс отправителя в сантимах.
func (r *PostgresRepository) Transfer(ctx context.Context, userID int64, targetNumber string, amount int64, reference, description string) (int64, error) {
	var senderBalance int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var senderID int64
		err = tx.QueryRow(ctx,
			`SELECT id FROM ewallet WHERE user_id = $1`,
			userID,
		).Scan(&senderID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		if err != nil {
			return fmt.Errorf("select sender wallet: %w", err)
		}

		var receiverID int64
		err = tx.QueryRow(ctx,
			`SELECT id FROM ewallet WHERE wallet_number = $1`,
			targetNumber,
		).Scan(&receiverID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		if err != nil {
			return fmt.Errorf("select receiver wallet: %w", err)
		}

		if senderID == receiverID {
			return ErrSameWallet
		}

		// Блокируем обе строки в порядке возрастания id, чтобы исключить дедлок
		// между встречными переводами.
		balances := make(map[int64]int64, 2)
		rows, err := tx.Query(ctx,
			`SELECT id, balance FROM ewallet WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
			[]int64{senderID, receiverID},
		)
		if err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}
		for rows.Next() {
			var id, balance int64
			if err := rows.Scan(&id, &balance); err != nil {
				rows.Close()
				return fmt.Errorf("scan wallet balance: %w", err)
			}
			balances[id] = balance
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		if len(balances) != 2 {
			return ErrWalletNotFound
		}

		senderBefore := balances[senderID]
		receiverBefore := balances[receiverID]

		if senderBefore < amount {
			return ErrInsufficientBalance
		}

		senderAfter := senderBefore - amount
		receiverAfter := receiverBefore + amount

		_, err = tx.Exec(ctx,
			`UPDATE ewallet
			 SET balance = $2, total_withdrawn = total_withdrawn + $3, updated_at = now()
			 WHERE id = $1`,
			senderID, senderAfter, amount,
		)
		if err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE ewallet
			 SET balance = $2, total_deposited = total_deposited + $3, updated_at = now()
			 WHERE id = $1`,
			receiverID, receiverAfter, amount,
		)
		if err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}

		if _, err := insertTransaction(ctx, tx, senderID, model.TransactionTypeTransfer, amount, description, reference, senderBefore, senderAfter); err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, receiverID, model.TransactionTypeTransfer, amount, description, reference, receiverBefore, receiverAfter); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		senderBalance = senderAfter
		return nil
	})
	if err != nil {
		return 0, err
	}

	return senderBalance, nil
}

// TransactionFilter задаёт условия выборки транзакций кошелька.
type TransactionFilter struct {
	Since *time.Time
	Until *time.Time
	Type  *model.TransactionType
	Limit int
}

// ListTransactions возвращает транзакции кошелька от новых к старым.
func (r *PostgresRepository) ListTransactions(ctx context.Context, walletID int64, f TransactionFilter) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, wallet_id, type, amount, status, description, reference,
		        balance_before, balance_after, created_at
		 FROM transactions
		 WHERE wallet_id = $1
		   AND ($2::timestamptz IS NULL OR created_at >= $2)
		   AND ($3::timestamptz IS NULL OR created_at <= $3)
		   AND ($4::text IS NULL OR type = $4)
		 ORDER BY created_at DESC
		 LIMIT $5`,
		walletID, f.Since, f.Until, (*string)(f.Type), f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Status,
			&t.Description, &t.Reference, &t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountTransactions возвращает количество транзакций кошелька.
func (r *PostgresRepository) CountTransactions(ctx context.Context, walletID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`,
		walletID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// SumTransactions возвращает сумму завершённых транзакций указанного типа в сантимах.
// Границы диапазона необязательны; from включительно, to не включительно.
func (r *PostgresRepository) SumTransactions(ctx context.Context, walletID int64, ttype model.TransactionType, from, to *time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM transactions
		 WHERE wallet_id = $1 AND type = $2 AND status = $3
		   AND ($4::timestamptz IS NULL OR created_at >= $4)
		   AND ($5::timestamptz IS NULL OR created_at < $5)`,
		walletID, string(ttype), string(model.TransactionStatusCompleted), from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}
