/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

// CreateBalance provisions the balance row for an account. A non-zero
// initial amount is recorded as a bonus entry in the same transaction, so
// the conservation invariant holds from the first row on.
func (d Datasource) CreateBalance(ctx context.Context, accountID string, initial int64) (*model.Balance, error) {
	if initial < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "initial balance cannot be negative", initial)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	balance := &model.Balance{AccountID: accountID, Balance: initial}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO balances (account_id, balance)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, accountID, initial).Scan(&balance.ID, &balance.CreatedAt, &balance.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Balance for this account already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to create balance", err)
	}

	if initial > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (entry_id, account_id, amount, type, description)
			VALUES ($1, $2, $3, $4, $5)
		`, model.GenerateUUIDWithSuffix("ent"), accountID, initial, model.EntryTypeBonus, "signup bonus")
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to record signup bonus", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to commit balance creation", err)
	}
	return balance, nil
}

func (d Datasource) GetBalance(ctx context.Context, accountID string) (*model.Balance, error) {
	balance := &model.Balance{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, balance, created_at, updated_at
		FROM balances WHERE account_id = $1
	`, accountID).Scan(&balance.ID, &balance.AccountID, &balance.Balance, &balance.CreatedAt, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account balance not found", accountID)
		}
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to read balance", err)
	}
	return balance, nil
}

// ReserveCredits deducts amount from the account balance and appends the
// negative usage entry in one transaction. The conditional UPDATE is the
// concurrency guard: two simultaneous reservations against the same
// remaining balance cannot both succeed, regardless of how many processes
// are running.
func (d Datasource) ReserveCredits(ctx context.Context, accountID string, amount int64, description, taskID string) (int64, error) {
	if amount <= 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "reservation amount must be positive", amount)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE balances
		SET balance = balance - $2, updated_at = NOW()
		WHERE account_id = $1 AND balance >= $2
		RETURNING balance
	`, accountID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			checkErr := d.Conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM balances WHERE account_id = $1)`, accountID).Scan(&exists)
			if checkErr != nil {
				return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to read balance", checkErr)
			}
			if !exists {
				return 0, apierror.NewAPIError(apierror.ErrNotFound, "Account balance not found", accountID)
			}
			return 0, apierror.NewAPIError(apierror.ErrInsufficientFunds, "Insufficient credits for reservation", amount)
		}
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to reserve credits", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_id, account_id, amount, type, description, task_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, model.GenerateUUIDWithSuffix("ent"), accountID, -amount, model.EntryTypeUsage, description, taskID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to append usage entry", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to commit reservation", err)
	}
	return newBalance, nil
}

// AddCredits adds amount back to the balance and appends a positive entry of
// the given type. There is no underflow check to fail on; refunds always
// succeed once the datastore is reachable.
func (d Datasource) AddCredits(ctx context.Context, accountID string, amount int64, entryType, description, taskID, assetID string) (int64, error) {
	if amount <= 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "credit amount must be positive", amount)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE balances
		SET balance = balance + $2, updated_at = NOW()
		WHERE account_id = $1
		RETURNING balance
	`, accountID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apierror.NewAPIError(apierror.ErrNotFound, "Account balance not found", accountID)
		}
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to add credits", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_id, account_id, amount, type, description, task_id, asset_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
	`, model.GenerateUUIDWithSuffix("ent"), accountID, amount, entryType, description, taskID, assetID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to append credit entry", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to commit credit", err)
	}
	return newBalance, nil
}

// GetLedgerEntries returns the account's entries newest first.
func (d Datasource) GetLedgerEntries(ctx context.Context, accountID string, limit, offset int) ([]model.LedgerEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, entry_id, account_id, amount, type, COALESCE(description, ''),
		       COALESCE(task_id, ''), COALESCE(asset_id, ''), created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to read ledger entries", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		entry := model.LedgerEntry{}
		var createdAt time.Time
		err = rows.Scan(&entry.ID, &entry.EntryID, &entry.AccountID, &entry.Amount, &entry.Type,
			&entry.Description, &entry.TaskID, &entry.AssetID, &createdAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to scan ledger entry", err)
		}
		entry.CreatedAt = createdAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrLedgerUnavailable, "Failed to iterate ledger entries", err)
	}
	return entries, nil
}
