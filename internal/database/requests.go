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
	"errors"
	"fmt"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/monitoring"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreatePaymentRequest(ctx context.Context, params store.PaymentRequestParams) (*models.PaymentRequest, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", store.ErrInvalidAmount, params.Amount.String())
	}
	if params.Kind != models.RequestDeposit && params.Kind != models.RequestWithdrawal {
		return nil, fmt.Errorf("invalid request kind %q", params.Kind)
	}

	// Withdrawals validate against the current balance at submission.
	// No funds are held back: approval re-validates before debiting.
	if params.Kind == models.RequestWithdrawal {
		balance, err := s.GetBalance(ctx, params.UserId)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(params.Amount) {
			return nil, fmt.Errorf("%w: balance %s, requested %s",
				store.ErrInsufficientFunds, balance.String(), params.Amount.String())
		}
	}

	request, err := s.scanPaymentRequest(s.db.QueryRowContext(ctx, queryInsertPaymentRequest,
		params.UserId, params.Kind, params.Currency, params.Amount.String(),
		params.Address, params.ProofRef, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}

	zap.L().Info("Payment request created",
		zap.Int64("request_id", request.Id),
		zap.Int64("user_id", request.UserId),
		zap.String("kind", string(request.Kind)),
		zap.String("currency", request.Currency),
		zap.String("amount", request.Amount.String()))

	return request, nil
}

func (s *Service) GetPaymentRequest(ctx context.Context, requestId int64) (*models.PaymentRequest, error) {
	request, err := s.scanPaymentRequest(s.db.QueryRowContext(ctx, queryGetPaymentRequest, requestId))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get payment request %d: %w", requestId, err)
	}
	return request, nil
}

func (s *Service) ListPendingRequests(ctx context.Context) ([]models.PaymentRequest, error) {
	return s.queryRequests(ctx, queryListPendingRequests)
}

func (s *Service) ListUserRequests(ctx context.Context, userId int64, limit int) ([]models.PaymentRequest, error) {
	return s.queryRequests(ctx, queryListUserRequests, userId, limit)
}

// ApproveRequest finalizes a pending request and applies the balance
// change in a single transaction: deposits credit, withdrawals debit.
// The pending-status guard in the UPDATE makes the decision exactly-once
// under concurrent admins. A withdrawal whose user can no longer cover
// the amount is auto-rejected with a system note; the rejected request
// is returned along with ErrInsufficientFunds.
func (s *Service) ApproveRequest(ctx context.Context, params store.DecideParams) (*models.PaymentRequest, error) {
	request, err := s.GetPaymentRequest(ctx, params.RequestId)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusPending {
		return request, store.ErrAlreadyProcessed
	}

	lock := s.lockUser(request.UserId)
	lock.Lock()
	defer lock.Unlock()

	approved, err := s.approveLocked(ctx, request, params)
	if err == nil {
		monitoring.PaymentRequestsDecided.WithLabelValues(string(request.Kind), string(models.StatusApproved)).Inc()
		zap.L().Info("Payment request approved",
			zap.Int64("request_id", request.Id),
			zap.Int64("user_id", request.UserId),
			zap.Int64("admin_id", params.AdminId),
			zap.String("kind", string(request.Kind)),
			zap.String("amount", request.Amount.String()))
		return approved, nil
	}

	if errors.Is(err, store.ErrInsufficientFunds) && request.Kind == models.RequestWithdrawal {
		note := fmt.Sprintf("auto-rejected: insufficient funds for %s %s", request.Amount.String(), request.Currency)
		rejected, rejectErr := s.decide(ctx, params.RequestId, models.StatusRejected, note)
		if rejectErr != nil {
			return nil, fmt.Errorf("failed to auto-reject request %d: %w", params.RequestId, rejectErr)
		}
		monitoring.PaymentRequestsDecided.WithLabelValues(string(request.Kind), string(models.StatusRejected)).Inc()
		zap.L().Warn("Withdrawal auto-rejected on approval",
			zap.Int64("request_id", request.Id),
			zap.Int64("user_id", request.UserId),
			zap.String("amount", request.Amount.String()))
		return rejected, err
	}

	return nil, err
}

func (s *Service) approveLocked(ctx context.Context, request *models.PaymentRequest, params store.DecideParams) (*models.PaymentRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryDecidePaymentRequest,
		models.StatusApproved, params.Note, time.Now(), params.RequestId)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, store.ErrAlreadyProcessed
	}

	amount := request.Amount
	if request.Kind == models.RequestWithdrawal {
		amount = amount.Neg()
	}

	if _, err := s.adjustTx(ctx, tx, store.AdjustParams{
		UserId:    request.UserId,
		Amount:    amount,
		Kind:      string(request.Kind),
		Reference: fmt.Sprintf("request:%d", request.Id),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetPaymentRequest(ctx, params.RequestId)
}

// RejectRequest marks a pending request rejected. No balance change:
// funds are only moved at approval time.
func (s *Service) RejectRequest(ctx context.Context, params store.DecideParams) (*models.PaymentRequest, error) {
	rejected, err := s.decide(ctx, params.RequestId, models.StatusRejected, params.Note)
	if err != nil {
		return nil, err
	}

	monitoring.PaymentRequestsDecided.WithLabelValues(string(rejected.Kind), string(models.StatusRejected)).Inc()
	zap.L().Info("Payment request rejected",
		zap.Int64("request_id", params.RequestId),
		zap.Int64("admin_id", params.AdminId))
	return rejected, nil
}

func (s *Service) decide(ctx context.Context, requestId int64, status models.RequestStatus, note string) (*models.PaymentRequest, error) {
	result, err := s.db.ExecContext(ctx, queryDecidePaymentRequest, status, note, time.Now(), requestId)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		request, getErr := s.GetPaymentRequest(ctx, requestId)
		if getErr != nil {
			return nil, getErr
		}
		return request, store.ErrAlreadyProcessed
	}

	return s.GetPaymentRequest(ctx, requestId)
}

func (s *Service) queryRequests(ctx context.Context, query string, args ...any) ([]models.PaymentRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment requests: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var requests []models.PaymentRequest
	for rows.Next() {
		request, err := s.scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment request: %w", err)
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment request rows: %w", err)
	}

	return requests, nil
}

func (s *Service) scanPaymentRequest(row rowScanner) (*models.PaymentRequest, error) {
	var request models.PaymentRequest
	var amountStr string
	var processedAt sql.NullTime
	err := row.Scan(&request.Id, &request.UserId, &request.Kind, &request.Currency,
		&amountStr, &request.Address, &request.ProofRef, &request.Status,
		&request.AdminNote, &request.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	request.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if processedAt.Valid {
		request.ProcessedAt = &processedAt.Time
	}
	return &request, nil
}
