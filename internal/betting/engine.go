package betting

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidStake = errors.New("stake outside allowed bounds")

// Engine settles bets: it quotes the odds, draws the outcome, and
// records everything through the store in one atomic settlement.
type Engine struct {
	store store.Store
	odds  *OddsService

	// winProbability is fixed and independent of the quoted odds.
	// Displayed prices are flavor; the draw is a plain Bernoulli trial.
	winProbability float64
	minStake       decimal.Decimal
	maxStake       decimal.Decimal

	mu  sync.Mutex
	rng func() float64
}

func NewEngine(st store.Store, odds *OddsService, cfg models.BettingConfig) (*Engine, error) {
	if cfg.WinProbability < 0 || cfg.WinProbability > 1 {
		return nil, fmt.Errorf("win probability must be in [0, 1], got %v", cfg.WinProbability)
	}

	minStake, err := decimal.NewFromString(cfg.MinStake)
	if err != nil {
		return nil, fmt.Errorf("invalid min stake %q: %w", cfg.MinStake, err)
	}
	maxStake, err := decimal.NewFromString(cfg.MaxStake)
	if err != nil {
		return nil, fmt.Errorf("invalid max stake %q: %w", cfg.MaxStake, err)
	}
	if minStake.GreaterThan(maxStake) {
		return nil, fmt.Errorf("min stake %s exceeds max stake %s", minStake.String(), maxStake.String())
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Engine{
		store:          st,
		odds:           odds,
		winProbability: cfg.WinProbability,
		minStake:       minStake,
		maxStake:       maxStake,
		rng:            rng.Float64,
	}, nil
}

// SetDrawFunc replaces the outcome source. Test hook.
func (e *Engine) SetDrawFunc(draw func() float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = draw
}

func (e *Engine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng()
}

// Place validates, prices, draws, and settles one bet. The stake debit
// and any payout credit commit together; a stake the user cannot cover
// fails with store.ErrInsufficientFunds and records nothing.
func (e *Engine) Place(ctx context.Context, userId int64, selection, betType string, stake decimal.Decimal) (*models.Bet, error) {
	if !ValidBetType(betType) {
		return nil, fmt.Errorf("%w: unknown bet type %q", ErrUnparsableBet, betType)
	}
	if stake.LessThan(e.minStake) {
		return nil, fmt.Errorf("%w: minimum stake is %s", ErrInvalidStake, e.minStake.String())
	}
	if stake.GreaterThan(e.maxStake) {
		return nil, fmt.Errorf("%w: maximum stake is %s", ErrInvalidStake, e.maxStake.String())
	}

	quote := e.odds.Quote(selection, betType)

	outcome := models.OutcomeLoss
	payout := decimal.Zero
	if e.draw() < e.winProbability {
		outcome = models.OutcomeWin
		payout = stake.Mul(quote.Odds)
	}

	bet, err := e.store.SettleBet(ctx, store.SettleBetParams{
		UserId:    userId,
		Selection: selection,
		BetType:   betType,
		Stake:     stake,
		Odds:      quote.Odds,
		Outcome:   outcome,
		Payout:    payout,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Bet placed",
		zap.Int64("user_id", userId),
		zap.String("selection", selection),
		zap.String("bet_type", betType),
		zap.String("stake", stake.String()),
		zap.String("odds", quote.Odds.String()),
		zap.String("outcome", string(outcome)))

	return bet, nil
}

// PlaceParsed settles a free-text bet in one shot.
func (e *Engine) PlaceParsed(ctx context.Context, userId int64, parsed *ParsedBet) (*models.Bet, error) {
	return e.Place(ctx, userId, parsed.Selection, parsed.BetType, parsed.Stake)
}
