package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     5 * time.Second,
	}

	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service, userId int64) *models.User {
	user, err := service.GetOrCreateUser(context.Background(), userId, "tester", "Test User")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func fundTestUser(t *testing.T, service *Service, userId int64, amount string) {
	_, err := service.Adjust(context.Background(), store.AdjustParams{
		UserId:    userId,
		Amount:    mustDecimal(t, amount),
		Kind:      "deposit",
		Reference: "test-funding",
	})
	if err != nil {
		t.Fatalf("Failed to fund test user: %v", err)
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", s, err)
	}
	return d
}

func TestAdjust_Credit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)

	entry, err := service.Adjust(ctx, store.AdjustParams{
		UserId:    1,
		Amount:    mustDecimal(t, "100.50"),
		Kind:      "deposit",
		Reference: "request:1",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	if !entry.BalanceBefore.Equal(decimal.Zero) {
		t.Errorf("Expected balance before 0, got %s", entry.BalanceBefore.String())
	}
	if !entry.BalanceAfter.Equal(mustDecimal(t, "100.50")) {
		t.Errorf("Expected balance after 100.50, got %s", entry.BalanceAfter.String())
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "100.50")) {
		t.Errorf("Expected balance 100.50, got %s", balance.String())
	}
}

func TestAdjust_DebitBelowZeroRejected(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "50")

	_, err := service.Adjust(ctx, store.AdjustParams{
		UserId: 1,
		Amount: mustDecimal(t, "-50.01"),
		Kind:   "withdrawal",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got: %v", err)
	}

	// Balance must be unchanged after the failed debit
	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "50")) {
		t.Errorf("Expected balance 50, got %s", balance.String())
	}
}

func TestAdjust_DebitToExactlyZero(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "50")

	entry, err := service.Adjust(ctx, store.AdjustParams{
		UserId: 1,
		Amount: mustDecimal(t, "-50"),
		Kind:   "withdrawal",
	})
	if err != nil {
		t.Fatalf("Adjust to zero failed: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", entry.BalanceAfter.String())
	}
}

func TestAdjust_UnknownUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.Adjust(context.Background(), store.AdjustParams{
		UserId: 999,
		Amount: mustDecimal(t, "10"),
		Kind:   "deposit",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

func TestAdjust_ConcurrentSameUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "1000")

	// 50 concurrent debits of 10 must serialize: final balance 500,
	// with no lost updates and no negative dips.
	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Adjust(ctx, store.AdjustParams{
				UserId: 1,
				Amount: mustDecimal(t, "-10"),
				Kind:   "bet_stake",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent adjust failed: %v", err)
		}
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "500")) {
		t.Errorf("Expected balance 500, got %s", balance.String())
	}
}

func TestLedgerHistory_ChainsBalances(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100")
	fundTestUser(t, service, 1, "25")

	_, err := service.Adjust(ctx, store.AdjustParams{
		UserId: 1,
		Amount: mustDecimal(t, "-40"),
		Kind:   "withdrawal",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	entries, err := service.GetLedgerHistory(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("GetLedgerHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 ledger entries, got %d", len(entries))
	}

	// Entries are newest first; each balance_before must equal the
	// next entry's balance_after.
	for i := 0; i < len(entries)-1; i++ {
		if !entries[i].BalanceBefore.Equal(entries[i+1].BalanceAfter) {
			t.Errorf("Ledger chain broken between entries %d and %d: %s vs %s",
				i, i+1, entries[i].BalanceBefore.String(), entries[i+1].BalanceAfter.String())
		}
	}

	if !entries[0].BalanceAfter.Equal(mustDecimal(t, "85")) {
		t.Errorf("Expected final balance 85, got %s", entries[0].BalanceAfter.String())
	}
}

func TestAdjust_ConcurrentDifferentUsers(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	const users = 20
	for i := int64(1); i <= users; i++ {
		createTestUser(t, service, i)
		fundTestUser(t, service, i, "100")
	}

	// Writers for different users contend only on the database file,
	// not on a shared per-user lock; none may surface a busy error.
	debit := mustDecimal(t, "-25")
	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := int64(1); i <= users; i++ {
		wg.Add(1)
		go func(userId int64) {
			defer wg.Done()
			_, err := service.Adjust(ctx, store.AdjustParams{
				UserId: userId,
				Amount: debit,
				Kind:   "bet_stake",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Cross-user concurrent adjust failed: %v", err)
		}
	}

	for i := int64(1); i <= users; i++ {
		balance, err := service.GetBalance(ctx, i)
		if err != nil {
			t.Fatalf("GetBalance failed for user %d: %v", i, err)
		}
		if !balance.Equal(mustDecimal(t, "75")) {
			t.Fatalf("Expected balance 75 for user %d, got %s", i, balance)
		}
	}
}
