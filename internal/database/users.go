package database

import (
	"context"
	"database/sql"
	"fmt"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetUser(ctx context.Context, userId int64) (*models.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userId, err)
	}
	return user, nil
}

// GetOrCreateUser returns the user, creating the row with a zero balance
// on first contact. Username and display name are refreshed if changed.
func (s *Service) GetOrCreateUser(ctx context.Context, userId int64, username, displayName string) (*models.User, error) {
	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, username, displayName); err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userId, err)
	}

	if username != "" || displayName != "" {
		if _, err := s.db.ExecContext(ctx, queryTouchUserIdentity,
			username, displayName, userId, username, displayName); err != nil {
			zap.L().Warn("Failed to refresh user identity", zap.Int64("user_id", userId), zap.Error(err))
		}
	}

	return s.GetUser(ctx, userId)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryListUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		var user models.User
		var balanceStr string
		err := rows.Scan(&user.Id, &user.Username, &user.DisplayName, &user.PreferredVoice,
			&balanceStr, &user.IsAdmin, &user.Version, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (s *Service) SetAdmin(ctx context.Context, userId int64, isAdmin bool) error {
	result, err := s.db.ExecContext(ctx, querySetAdmin, isAdmin, userId)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	zap.L().Info("Admin flag updated", zap.Int64("user_id", userId), zap.Bool("is_admin", isAdmin))
	return nil
}

func (s *Service) SetPreferredVoice(ctx context.Context, userId int64, voice string) error {
	result, err := s.db.ExecContext(ctx, querySetPreferredVoice, voice, userId)
	if err != nil {
		return fmt.Errorf("failed to set preferred voice: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Service) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var balanceStr string
	err := row.Scan(&user.Id, &user.Username, &user.DisplayName, &user.PreferredVoice,
		&balanceStr, &user.IsAdmin, &user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return &user, nil
}
