package betting

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bet-engine-go/internal/database"
	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
)

func testBettingConfig() models.BettingConfig {
	return models.BettingConfig{
		WinProbability: 0.10,
		HouseEdge:      0.05,
		MinStake:       "1",
		MaxStake:       "10000",
	}
}

func setupEngine(t *testing.T) (*Engine, *database.Service) {
	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     5 * time.Second,
	}

	service, err := database.NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)

	engine, err := NewEngine(service, NewOddsService(0.05), testBettingConfig())
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	return engine, service
}

func fundUser(t *testing.T, service *database.Service, userId int64, amount string) {
	ctx := context.Background()
	if _, err := service.GetOrCreateUser(ctx, userId, "tester", "Test User"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	stake, _ := decimal.NewFromString(amount)
	if _, err := service.Adjust(ctx, store.AdjustParams{
		UserId: userId, Amount: stake, Kind: "deposit", Reference: "test-funding",
	}); err != nil {
		t.Fatalf("Failed to fund user: %v", err)
	}
}

func TestPlace_ForcedLoss(t *testing.T) {
	engine, service := setupEngine(t)
	ctx := context.Background()
	fundUser(t, service, 1, "100")

	engine.SetDrawFunc(func() float64 { return 0.99 })

	bet, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if bet.Outcome != models.OutcomeLoss {
		t.Errorf("Expected loss, got %s", bet.Outcome)
	}
	if !bet.Payout.Equal(decimal.Zero) {
		t.Errorf("Expected zero payout, got %s", bet.Payout.String())
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected balance 50 after losing 50, got %s", balance.String())
	}
}

func TestPlace_ForcedWinPaysStakeTimesOdds(t *testing.T) {
	engine, service := setupEngine(t)
	ctx := context.Background()
	fundUser(t, service, 1, "100")

	engine.SetDrawFunc(func() float64 { return 0.0 })

	// Lakers ML quotes 1.6
	bet, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if bet.Outcome != models.OutcomeWin {
		t.Errorf("Expected win, got %s", bet.Outcome)
	}

	wantPayout, _ := decimal.NewFromString("80") // 50 * 1.6
	if !bet.Payout.Equal(wantPayout) {
		t.Errorf("Expected payout 80, got %s", bet.Payout.String())
	}

	// 100 - 50 + 80 = 130
	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(130)) {
		t.Errorf("Expected balance 130, got %s", balance.String())
	}
}

func TestPlace_StakeBounds(t *testing.T) {
	engine, service := setupEngine(t)
	ctx := context.Background()
	fundUser(t, service, 1, "100000")

	if _, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromFloat(0.5)); !errors.Is(err, ErrInvalidStake) {
		t.Errorf("Expected ErrInvalidStake below minimum, got %v", err)
	}
	if _, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromInt(10001)); !errors.Is(err, ErrInvalidStake) {
		t.Errorf("Expected ErrInvalidStake above maximum, got %v", err)
	}
	if _, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromInt(10000)); err != nil {
		t.Errorf("Expected max stake to be accepted, got %v", err)
	}
}

func TestPlace_InsufficientBalance(t *testing.T) {
	engine, service := setupEngine(t)
	ctx := context.Background()
	fundUser(t, service, 1, "20")

	_, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, decimal.NewFromInt(50))
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
}

// settleRecorder satisfies store.Store for settlement only; every other
// method panics via the embedded nil interface.
type settleRecorder struct {
	store.Store
	wins, losses int
}

func (r *settleRecorder) SettleBet(_ context.Context, params store.SettleBetParams) (*models.Bet, error) {
	if params.Outcome == models.OutcomeWin {
		r.wins++
	} else {
		r.losses++
	}
	return &models.Bet{
		UserId:    params.UserId,
		Selection: params.Selection,
		BetType:   params.BetType,
		Stake:     params.Stake,
		Odds:      params.Odds,
		Outcome:   params.Outcome,
		Payout:    params.Payout,
	}, nil
}

func TestPlace_WinRateConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence test in short mode")
	}

	recorder := &settleRecorder{}
	engine, err := NewEngine(recorder, NewOddsService(0.05), testBettingConfig())
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}

	ctx := context.Background()
	stake := decimal.NewFromInt(10)
	const trials = 100000
	for i := 0; i < trials; i++ {
		if _, err := engine.Place(ctx, 1, "Lakers", BetTypeMoneyline, stake); err != nil {
			t.Fatalf("Place failed on trial %d: %v", i, err)
		}
	}

	winRate := float64(recorder.wins) / float64(trials)
	if winRate < 0.09 || winRate > 0.11 {
		t.Errorf("Win rate %.4f outside [0.09, 0.11] after %d trials", winRate, trials)
	}
}
