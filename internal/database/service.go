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
	"sync"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db *sql.DB

	// userLocks serializes balance-mutating operations per user so that
	// concurrent approvals and settlements for the same user queue up
	// while different users proceed in parallel.
	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _busy_timeout makes concurrent writers queue briefly instead of
	// failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{
		db:        db,
		userLocks: make(map[int64]*sync.Mutex),
	}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// lockUser returns the mutex guarding the given user's balance,
// creating it on first use.
func (s *Service) lockUser(userId int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userId]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userId] = lock
	}
	return lock
}

func (s *Service) initSchema() error {
	schema := `
	-- Users table: balance is the hot copy, ledger_entries the audit trail.
	-- Balances are stored as decimal strings to avoid float drift.
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		preferred_voice TEXT NOT NULL DEFAULT '',
		balance TEXT NOT NULL DEFAULT '0',
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

	-- Deposit and withdrawal requests awaiting admin review
	CREATE TABLE IF NOT EXISTS payment_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		proof_ref TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		admin_note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status);
	CREATE INDEX IF NOT EXISTS idx_payment_requests_user_id ON payment_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_payment_requests_created_at ON payment_requests(created_at);

	-- Settled bets (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS bets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		selection TEXT NOT NULL,
		bet_type TEXT NOT NULL,
		stake TEXT NOT NULL,
		odds TEXT NOT NULL,
		outcome TEXT NOT NULL,
		payout TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bets_user_id ON bets(user_id);
	CREATE INDEX IF NOT EXISTS idx_bets_created_at ON bets(created_at);
	CREATE INDEX IF NOT EXISTS idx_bets_outcome ON bets(outcome);

	-- Balance audit trail with before/after snapshots
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at);

	-- Deposit addresses shown to users, managed by admins
	CREATE TABLE IF NOT EXISTS admin_wallets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency TEXT NOT NULL,
		network TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (currency, network)
	);

	-- Saved withdrawal destinations per user
	CREATE TABLE IF NOT EXISTS user_wallets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		currency TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, currency)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
