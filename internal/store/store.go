package store

import (
	"context"
	"errors"
	"time"

	"bet-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAlreadyProcessed       = errors.New("request already processed")
	ErrNotFound               = errors.New("record not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUnknownCurrency        = errors.New("unsupported currency")
	ErrInvalidAmount          = errors.New("invalid amount")
)

// AdjustParams describes one balance adjustment. Reference ties the
// resulting ledger entry back to the payment request or bet that caused it.
type AdjustParams struct {
	UserId    int64
	Amount    decimal.Decimal // positive credits, negative debits
	Kind      string          // deposit, withdrawal, bet_stake, bet_payout, admin_adjust
	Reference string
}

// PaymentRequestParams captures a new deposit or withdrawal awaiting
// admin review.
type PaymentRequestParams struct {
	UserId   int64
	Kind     models.RequestKind
	Currency string
	Amount   decimal.Decimal
	Address  string // destination address for withdrawals
	ProofRef string // payment proof reference for deposits
}

// DecideParams carries an admin decision on a pending request.
type DecideParams struct {
	RequestId int64
	AdminId   int64
	Note      string
}

// SettleBetParams records one settled bet: the stake debit, the drawn
// outcome, and the payout credit all land in a single transaction.
type SettleBetParams struct {
	UserId    int64
	Selection string
	BetType   string
	Stake     decimal.Decimal
	Odds      decimal.Decimal
	Outcome   models.BetOutcome
	Payout    decimal.Decimal
}

// Store defines the contract the engine requires from a backend.
type Store interface {
	// --- Users ---
	GetUser(ctx context.Context, userId int64) (*models.User, error)
	GetOrCreateUser(ctx context.Context, userId int64, username, displayName string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, userId int64, isAdmin bool) error
	SetPreferredVoice(ctx context.Context, userId int64, voice string) error

	// --- Balances ---
	GetBalance(ctx context.Context, userId int64) (decimal.Decimal, error)
	Adjust(ctx context.Context, params AdjustParams) (*models.LedgerEntry, error)
	GetLedgerHistory(ctx context.Context, userId int64, limit, offset int) ([]models.LedgerEntry, error)

	// --- Payment requests ---
	CreatePaymentRequest(ctx context.Context, params PaymentRequestParams) (*models.PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, requestId int64) (*models.PaymentRequest, error)
	ListPendingRequests(ctx context.Context) ([]models.PaymentRequest, error)
	ListUserRequests(ctx context.Context, userId int64, limit int) ([]models.PaymentRequest, error)
	ApproveRequest(ctx context.Context, params DecideParams) (*models.PaymentRequest, error)
	RejectRequest(ctx context.Context, params DecideParams) (*models.PaymentRequest, error)

	// --- Bets ---
	SettleBet(ctx context.Context, params SettleBetParams) (*models.Bet, error)
	ListUserBets(ctx context.Context, userId int64, limit int) ([]models.Bet, error)
	GetUserStats(ctx context.Context, userId int64) (*models.UserStats, error)
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	GetSystemStats(ctx context.Context) (*models.SystemStats, error)

	// --- Wallets ---
	AddAdminWallet(ctx context.Context, currency, network, address string) error
	RemoveAdminWallet(ctx context.Context, currency, network string) error
	ListAdminWallets(ctx context.Context) ([]models.AdminWallet, error)
	GetAdminWallet(ctx context.Context, currency string) (*models.AdminWallet, error)
	SaveUserWallet(ctx context.Context, userId int64, currency, address string) error
	ListUserWallets(ctx context.Context, userId int64) ([]models.UserWallet, error)

	// --- Lifecycle ---
	Ping(ctx context.Context, timeout time.Duration) error
	Close()
}
