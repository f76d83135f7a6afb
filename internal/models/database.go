package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestKind distinguishes deposit and withdrawal payment requests.
type RequestKind string

const (
	RequestDeposit    RequestKind = "deposit"
	RequestWithdrawal RequestKind = "withdrawal"
)

// RequestStatus is the lifecycle state of a payment request.
// The only legal transitions are pending -> approved and pending -> rejected,
// each exactly once.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// BetOutcome is the settled result of a wager.
type BetOutcome string

const (
	OutcomeWin  BetOutcome = "win"
	OutcomeLoss BetOutcome = "loss"
)

// User represents a player or admin account
type User struct {
	Id             int64           `db:"id"`
	Username       string          `db:"username"`
	DisplayName    string          `db:"display_name"`
	PreferredVoice string          `db:"preferred_voice"`
	Balance        decimal.Decimal `db:"balance"`
	IsAdmin        bool            `db:"is_admin"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// PaymentRequest represents one deposit or withdrawal intent awaiting
// or having received admin disposition.
type PaymentRequest struct {
	Id          int64           `db:"id"`
	UserId      int64           `db:"user_id"`
	Kind        RequestKind     `db:"kind"`
	Currency    string          `db:"currency"`
	Amount      decimal.Decimal `db:"amount"`
	Address     string          `db:"address"`
	ProofRef    string          `db:"proof_ref"`
	Status      RequestStatus   `db:"status"`
	AdminNote   string          `db:"admin_note"`
	CreatedAt   time.Time       `db:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at"`
}

// Bet is one settled wager. Immutable once created.
type Bet struct {
	Id        int64           `db:"id"`
	UserId    int64           `db:"user_id"`
	Selection string          `db:"selection"`
	BetType   string          `db:"bet_type"`
	Stake     decimal.Decimal `db:"stake"`
	Odds      decimal.Decimal `db:"odds"`
	Outcome   BetOutcome      `db:"outcome"`
	Payout    decimal.Decimal `db:"payout"`
	CreatedAt time.Time       `db:"created_at"`
}

// AdminWallet is a receiving address shown to depositing users.
type AdminWallet struct {
	Id        int64     `db:"id"`
	Currency  string    `db:"currency"`
	Network   string    `db:"network"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}

// UserWallet is a payout address a user registered for withdrawals.
type UserWallet struct {
	Id        int64     `db:"id"`
	UserId    int64     `db:"user_id"`
	Currency  string    `db:"currency"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}

// LedgerEntry is the immutable audit record of one balance mutation
// (cold data). The balance itself lives on the user row (hot data).
type LedgerEntry struct {
	Id            string          `db:"id"`
	UserId        int64           `db:"user_id"`
	Kind          string          `db:"kind"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}

// UserStats aggregates a user's betting history.
type UserStats struct {
	UserId       int64
	TotalBets    int64
	TotalWagered decimal.Decimal
	TotalPayout  decimal.Decimal
	Wins         int64
	Losses       int64
}

// LeaderboardEntry is one row of the profit leaderboard.
type LeaderboardEntry struct {
	UserId      int64
	DisplayName string
	TotalBets   int64
	Profit      decimal.Decimal
}

// SystemStats summarizes the whole ledger for the admin surface.
type SystemStats struct {
	TotalUsers      int64
	TotalBets       int64
	TotalWagered    decimal.Decimal
	TotalPayout     decimal.Decimal
	PendingRequests int64
}
