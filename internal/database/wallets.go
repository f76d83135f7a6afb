package database

import (
	"context"
	"database/sql"
	"fmt"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) AddAdminWallet(ctx context.Context, currency, network, address string) error {
	if currency == "" || network == "" || address == "" {
		return fmt.Errorf("currency, network and address are all required")
	}

	_, err := s.db.ExecContext(ctx, queryUpsertAdminWallet, currency, network, address)
	if err != nil {
		return fmt.Errorf("failed to add admin wallet: %w", err)
	}

	zap.L().Info("Admin wallet stored",
		zap.String("currency", currency),
		zap.String("network", network),
		zap.String("address", address))
	return nil
}

func (s *Service) RemoveAdminWallet(ctx context.Context, currency, network string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteAdminWallet, currency, network)
	if err != nil {
		return fmt.Errorf("failed to remove admin wallet: %w", err)
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

func (s *Service) ListAdminWallets(ctx context.Context) ([]models.AdminWallet, error) {
	rows, err := s.db.QueryContext(ctx, queryListAdminWallets)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []models.AdminWallet
	for rows.Next() {
		var wallet models.AdminWallet
		if err := rows.Scan(&wallet.Id, &wallet.Currency, &wallet.Network, &wallet.Address, &wallet.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin wallet rows: %w", err)
	}

	return wallets, nil
}

// GetAdminWallet returns the deposit address for a currency, or
// ErrUnknownCurrency when no admin has registered one.
func (s *Service) GetAdminWallet(ctx context.Context, currency string) (*models.AdminWallet, error) {
	var wallet models.AdminWallet
	err := s.db.QueryRowContext(ctx, queryGetAdminWallet, currency).
		Scan(&wallet.Id, &wallet.Currency, &wallet.Network, &wallet.Address, &wallet.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCurrency, currency)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get admin wallet: %w", err)
	}
	return &wallet, nil
}

func (s *Service) SaveUserWallet(ctx context.Context, userId int64, currency, address string) error {
	if currency == "" || address == "" {
		return fmt.Errorf("currency and address are both required")
	}

	_, err := s.db.ExecContext(ctx, queryUpsertUserWallet, userId, currency, address)
	if err != nil {
		return fmt.Errorf("failed to save user wallet: %w", err)
	}
	return nil
}

func (s *Service) ListUserWallets(ctx context.Context, userId int64) ([]models.UserWallet, error) {
	rows, err := s.db.QueryContext(ctx, queryListUserWallets, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list user wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []models.UserWallet
	for rows.Next() {
		var wallet models.UserWallet
		if err := rows.Scan(&wallet.Id, &wallet.UserId, &wallet.Currency, &wallet.Address, &wallet.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user wallet rows: %w", err)
	}

	return wallets, nil
}
