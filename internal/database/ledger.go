/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetBalance(ctx context.Context, userId int64) (decimal.Decimal, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId).Scan(&balanceStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, store.ErrNotFound
	} else if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return balance, nil
}

// Adjust atomically applies one balance mutation and records the ledger
// entry. A negative amount that would take the balance below zero fails
// with ErrInsufficientFunds and changes nothing.
func (s *Service) Adjust(ctx context.Context, params store.AdjustParams) (*models.LedgerEntry, error) {
	if params.Amount.IsZero() {
		return nil, fmt.Errorf("%w: zero adjustment", store.ErrInvalidAmount)
	}

	lock := s.lockUser(params.UserId)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.adjustTx(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balance adjusted",
		zap.Int64("user_id", params.UserId),
		zap.String("kind", params.Kind),
		zap.String("amount", params.Amount.String()),
		zap.String("old_balance", entry.BalanceBefore.String()),
		zap.String("new_balance", entry.BalanceAfter.String()))

	return entry, nil
}

// adjustTx performs the balance read/check/write inside an existing
// transaction. Callers must hold the user's lock and commit themselves.
func (s *Service) adjustTx(ctx context.Context, tx *sql.Tx, params store.AdjustParams) (*models.LedgerEntry, error) {
	var currentBalanceStr string
	var version int64
	err := tx.QueryRowContext(ctx, queryGetBalanceVersion, params.UserId).Scan(&currentBalanceStr, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", params.UserId, store.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}

	newBalance := currentBalance.Add(params.Amount)
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s, requested %s",
			store.ErrInsufficientFunds, currentBalance.String(), params.Amount.String())
	}

	entry := &models.LedgerEntry{
		Id:            uuid.New().String(),
		UserId:        params.UserId,
		Kind:          params.Kind,
		Amount:        params.Amount,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Reference:     params.Reference,
		CreatedAt:     time.Now(),
	}

	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.UserId, entry.Kind,
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	// Update balance with optimistic locking
	result, err := tx.ExecContext(ctx, queryUpdateBalance, newBalance.String(), params.UserId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return entry, nil
}

// GetLedgerHistory returns paginated ledger entries for a user
func (s *Service) GetLedgerHistory(ctx context.Context, userId int64, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetLedgerHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&entry.Id, &entry.UserId, &entry.Kind,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&entry.Reference, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entry.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		entry.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}
		entry.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}
