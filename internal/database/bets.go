package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettleBet records one settled wager atomically: the stake debit, the
// payout credit (for wins), and the bet row all land in a single
// transaction. An insufficient balance fails the whole settlement.
func (s *Service) SettleBet(ctx context.Context, params store.SettleBetParams) (*models.Bet, error) {
	if !params.Stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive, got %s", store.ErrInvalidAmount, params.Stake.String())
	}

	lock := s.lockUser(params.UserId)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bet, err := s.scanBet(tx.QueryRowContext(ctx, queryInsertBet,
		params.UserId, params.Selection, params.BetType,
		params.Stake.String(), params.Odds.String(),
		params.Outcome, params.Payout.String(), time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to insert bet: %w", err)
	}

	if _, err := s.adjustTx(ctx, tx, store.AdjustParams{
		UserId:    params.UserId,
		Amount:    params.Stake.Neg(),
		Kind:      "bet_stake",
		Reference: fmt.Sprintf("bet:%d", bet.Id),
	}); err != nil {
		return nil, err
	}

	if params.Outcome == models.OutcomeWin && params.Payout.IsPositive() {
		if _, err := s.adjustTx(ctx, tx, store.AdjustParams{
			UserId:    params.UserId,
			Amount:    params.Payout,
			Kind:      "bet_payout",
			Reference: fmt.Sprintf("bet:%d", bet.Id),
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Bet settled",
		zap.Int64("bet_id", bet.Id),
		zap.Int64("user_id", params.UserId),
		zap.String("selection", params.Selection),
		zap.String("stake", params.Stake.String()),
		zap.String("outcome", string(params.Outcome)),
		zap.String("payout", params.Payout.String()))

	return bet, nil
}

func (s *Service) ListUserBets(ctx context.Context, userId int64, limit int) ([]models.Bet, error) {
	rows, err := s.db.QueryContext(ctx, queryListUserBets, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var bets []models.Bet
	for rows.Next() {
		bet, err := s.scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, *bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet rows: %w", err)
	}

	return bets, nil
}

func (s *Service) GetUserStats(ctx context.Context, userId int64) (*models.UserStats, error) {
	stats := &models.UserStats{UserId: userId}
	var wageredStr, payoutStr string
	err := s.db.QueryRowContext(ctx, queryGetUserStats, userId).
		Scan(&stats.TotalBets, &stats.Wins, &wageredStr, &payoutStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	stats.Losses = stats.TotalBets - stats.Wins
	stats.TotalWagered, err = decimal.NewFromString(wageredStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total wagered '%s': %w", wageredStr, err)
	}
	stats.TotalPayout, err = decimal.NewFromString(payoutStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total payout '%s': %w", payoutStr, err)
	}
	return stats, nil
}

func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetLeaderboard, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		var username string
		var wins int64
		var profitStr string
		err := rows.Scan(&entry.UserId, &username, &entry.DisplayName, &entry.TotalBets, &wins, &profitStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		if entry.DisplayName == "" {
			entry.DisplayName = username
		}
		entry.Profit, err = decimal.NewFromString(profitStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse profit '%s': %w", profitStr, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	return entries, nil
}

func (s *Service) GetSystemStats(ctx context.Context) (*models.SystemStats, error) {
	stats := &models.SystemStats{}
	var wageredStr, payoutStr string
	err := s.db.QueryRowContext(ctx, queryGetSystemStats).
		Scan(&stats.TotalUsers, &stats.TotalBets, &wageredStr, &payoutStr, &stats.PendingRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to get system stats: %w", err)
	}

	stats.TotalWagered, err = decimal.NewFromString(wageredStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total wagered '%s': %w", wageredStr, err)
	}
	stats.TotalPayout, err = decimal.NewFromString(payoutStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total payout '%s': %w", payoutStr, err)
	}
	return stats, nil
}

func (s *Service) scanBet(row rowScanner) (*models.Bet, error) {
	var bet models.Bet
	var stakeStr, oddsStr, payoutStr string
	err := row.Scan(&bet.Id, &bet.UserId, &bet.Selection, &bet.BetType,
		&stakeStr, &oddsStr, &bet.Outcome, &payoutStr, &bet.CreatedAt)
	if err != nil {
		return nil, err
	}

	bet.Stake, err = decimal.NewFromString(stakeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stake '%s': %w", stakeStr, err)
	}
	bet.Odds, err = decimal.NewFromString(oddsStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse odds '%s': %w", oddsStr, err)
	}
	bet.Payout, err = decimal.NewFromString(payoutStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payout '%s': %w", payoutStr, err)
	}
	return &bet, nil
}
