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

const (
	// User queries
	queryGetUserById = `
		SELECT id, username, display_name, preferred_voice, balance, is_admin, version, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, username, display_name) VALUES (?, ?, ?)`

	queryListUsers = `
		SELECT id, username, display_name, preferred_voice, balance, is_admin, version, created_at, updated_at
		FROM users
		ORDER BY created_at`

	querySetAdmin = `
		UPDATE users SET is_admin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	querySetPreferredVoice = `
		UPDATE users SET preferred_voice = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	// Empty fields keep the stored value: a transport can deliver an
	// action with only one of the two identity fields set.
	queryTouchUserIdentity = `
		UPDATE users SET
			username = COALESCE(NULLIF(?, ''), username),
			display_name = COALESCE(NULLIF(?, ''), display_name),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
			AND (username != COALESCE(NULLIF(?, ''), username)
				OR display_name != COALESCE(NULLIF(?, ''), display_name))`

	// Balance queries
	queryGetBalance = `
		SELECT balance FROM users WHERE id = ?`

	queryGetBalanceVersion = `
		SELECT balance, version FROM users WHERE id = ?`

	queryUpdateBalance = `
		UPDATE users
		SET balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, user_id, kind, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerHistory = `
		SELECT id, user_id, kind, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	// Payment request queries
	queryInsertPaymentRequest = `
		INSERT INTO payment_requests (user_id, kind, currency, amount, address, proof_ref, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)
		RETURNING id, user_id, kind, currency, amount, address, proof_ref, status, admin_note, created_at, processed_at`

	queryGetPaymentRequest = `
		SELECT id, user_id, kind, currency, amount, address, proof_ref, status, admin_note, created_at, processed_at
		FROM payment_requests
		WHERE id = ?`

	queryListPendingRequests = `
		SELECT id, user_id, kind, currency, amount, address, proof_ref, status, admin_note, created_at, processed_at
		FROM payment_requests
		WHERE status = 'pending'
		ORDER BY created_at`

	queryListUserRequests = `
		SELECT id, user_id, kind, currency, amount, address, proof_ref, status, admin_note, created_at, processed_at
		FROM payment_requests
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// The status guard makes the decision exactly-once: a second admin
	// acting on the same request matches zero rows.
	queryDecidePaymentRequest = `
		UPDATE payment_requests
		SET status = ?, admin_note = ?, processed_at = ?
		WHERE id = ? AND status = 'pending'`

	// Bet queries
	queryInsertBet = `
		INSERT INTO bets (user_id, selection, bet_type, stake, odds, outcome, payout, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, selection, bet_type, stake, odds, outcome, payout, created_at`

	queryListUserBets = `
		SELECT id, user_id, selection, bet_type, stake, odds, outcome, payout, created_at
		FROM bets
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	queryGetUserStats = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(stake), 0),
		       COALESCE(SUM(payout), 0)
		FROM bets
		WHERE user_id = ?`

	queryGetLeaderboard = `
		SELECT b.user_id, u.username, u.display_name,
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN b.outcome = 'win' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(b.payout - b.stake), 0)
		FROM bets b
		JOIN users u ON u.id = b.user_id
		GROUP BY b.user_id
		ORDER BY COALESCE(SUM(b.payout - b.stake), 0) DESC
		LIMIT ?`

	queryGetSystemStats = `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM bets),
		       (SELECT COALESCE(SUM(stake), 0) FROM bets),
		       (SELECT COALESCE(SUM(payout), 0) FROM bets),
		       (SELECT COUNT(*) FROM payment_requests WHERE status = 'pending')`

	// Wallet queries
	queryUpsertAdminWallet = `
		INSERT INTO admin_wallets (currency, network, address)
		VALUES (?, ?, ?)
		ON CONFLICT(currency, network) DO UPDATE SET address = excluded.address`

	queryDeleteAdminWallet = `
		DELETE FROM admin_wallets WHERE currency = ? AND network = ?`

	queryListAdminWallets = `
		SELECT id, currency, network, address, created_at FROM admin_wallets ORDER BY currency, network`

	queryGetAdminWallet = `
		SELECT id, currency, network, address, created_at FROM admin_wallets WHERE currency = ? LIMIT 1`

	queryUpsertUserWallet = `
		INSERT INTO user_wallets (user_id, currency, address)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, currency) DO UPDATE SET address = excluded.address`

	queryListUserWallets = `
		SELECT id, user_id, currency, address, created_at FROM user_wallets WHERE user_id = ? ORDER BY currency`
)
