package database

import (
	"context"
	"errors"
	"testing"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"
)

func TestSettleBet_LossDebitsStakeOnly(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100")

	bet, err := service.SettleBet(ctx, store.SettleBetParams{
		UserId:    1,
		Selection: "Lakers",
		BetType:   "ML",
		Stake:     mustDecimal(t, "50"),
		Odds:      mustDecimal(t, "3.0"),
		Outcome:   models.OutcomeLoss,
		Payout:    mustDecimal(t, "0"),
	})
	if err != nil {
		t.Fatalf("SettleBet failed: %v", err)
	}
	if bet.Outcome != models.OutcomeLoss {
		t.Errorf("Expected outcome loss, got %s", bet.Outcome)
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "50")) {
		t.Errorf("Expected balance 50, got %s", balance.String())
	}
}

func TestSettleBet_WinCreditsPayout(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100")

	_, err := service.SettleBet(ctx, store.SettleBetParams{
		UserId:    1,
		Selection: "Chiefs",
		BetType:   "SPREAD",
		Stake:     mustDecimal(t, "50"),
		Odds:      mustDecimal(t, "2.5"),
		Outcome:   models.OutcomeWin,
		Payout:    mustDecimal(t, "125"),
	})
	if err != nil {
		t.Fatalf("SettleBet failed: %v", err)
	}

	// 100 - 50 stake + 125 payout = 175
	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "175")) {
		t.Errorf("Expected balance 175, got %s", balance.String())
	}

	// Both legs must be in the ledger, referencing the bet
	entries, err := service.GetLedgerHistory(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("GetLedgerHistory failed: %v", err)
	}
	var sawStake, sawPayout bool
	for _, entry := range entries {
		switch entry.Kind {
		case "bet_stake":
			sawStake = true
		case "bet_payout":
			sawPayout = true
		}
	}
	if !sawStake || !sawPayout {
		t.Errorf("Expected bet_stake and bet_payout ledger entries, got stake=%v payout=%v", sawStake, sawPayout)
	}
}

func TestSettleBet_InsufficientBalanceRecordsNothing(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "20")

	_, err := service.SettleBet(ctx, store.SettleBetParams{
		UserId:    1,
		Selection: "Lakers",
		BetType:   "ML",
		Stake:     mustDecimal(t, "50"),
		Odds:      mustDecimal(t, "3.0"),
		Outcome:   models.OutcomeLoss,
		Payout:    mustDecimal(t, "0"),
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got: %v", err)
	}

	// Whole settlement rolled back: no bet row, balance intact
	bets, err := service.ListUserBets(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListUserBets failed: %v", err)
	}
	if len(bets) != 0 {
		t.Errorf("Expected no bets recorded, got %d", len(bets))
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "20")) {
		t.Errorf("Expected balance 20, got %s", balance.String())
	}
}

func TestGetUserStats(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "1000")

	settle := func(outcome models.BetOutcome, stake, payout string) {
		t.Helper()
		_, err := service.SettleBet(ctx, store.SettleBetParams{
			UserId:    1,
			Selection: "Lakers",
			BetType:   "ML",
			Stake:     mustDecimal(t, stake),
			Odds:      mustDecimal(t, "2.0"),
			Outcome:   outcome,
			Payout:    mustDecimal(t, payout),
		})
		if err != nil {
			t.Fatalf("SettleBet failed: %v", err)
		}
	}

	settle(models.OutcomeWin, "100", "200")
	settle(models.OutcomeLoss, "50", "0")
	settle(models.OutcomeLoss, "25", "0")

	stats, err := service.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserStats failed: %v", err)
	}
	if stats.TotalBets != 3 {
		t.Errorf("Expected 3 bets, got %d", stats.TotalBets)
	}
	if stats.Wins != 1 || stats.Losses != 2 {
		t.Errorf("Expected 1 win 2 losses, got %d/%d", stats.Wins, stats.Losses)
	}
	if !stats.TotalWagered.Equal(mustDecimal(t, "175")) {
		t.Errorf("Expected total wagered 175, got %s", stats.TotalWagered.String())
	}
	if !stats.TotalPayout.Equal(mustDecimal(t, "200")) {
		t.Errorf("Expected total payout 200, got %s", stats.TotalPayout.String())
	}
}
