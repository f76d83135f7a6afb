package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"
)

func createPendingRequest(t *testing.T, service *Service, userId int64, kind models.RequestKind, amount string) *models.PaymentRequest {
	request, err := service.CreatePaymentRequest(context.Background(), store.PaymentRequestParams{
		UserId:   userId,
		Kind:     kind,
		Currency: "USDT",
		Amount:   mustDecimal(t, amount),
		Address:  "TTestAddress",
		ProofRef: "proof-1",
	})
	if err != nil {
		t.Fatalf("CreatePaymentRequest failed: %v", err)
	}
	return request
}

func TestCreatePaymentRequest_StartsPending(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, 1)
	request := createPendingRequest(t, service, 1, models.RequestDeposit, "100")

	if request.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", request.Status)
	}
	if request.ProcessedAt != nil {
		t.Errorf("Expected nil processed_at on a pending request")
	}
}

func TestCreatePaymentRequest_RejectsNonPositiveAmount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, 1)
	_, err := service.CreatePaymentRequest(context.Background(), store.PaymentRequestParams{
		UserId:   1,
		Kind:     models.RequestDeposit,
		Currency: "USDT",
		Amount:   mustDecimal(t, "0"),
	})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("Expected ErrInvalidAmount, got: %v", err)
	}
}

func TestApproveRequest_DepositCreditsBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	request := createPendingRequest(t, service, 1, models.RequestDeposit, "100")

	approved, err := service.ApproveRequest(ctx, store.DecideParams{
		RequestId: request.Id,
		AdminId:   42,
		Note:      "verified on chain",
	})
	if err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}

	if approved.Status != models.StatusApproved {
		t.Errorf("Expected status approved, got %s", approved.Status)
	}
	if approved.ProcessedAt == nil {
		t.Errorf("Expected processed_at to be set")
	}
	if approved.AdminNote != "verified on chain" {
		t.Errorf("Expected admin note to be stored, got %q", approved.AdminNote)
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "100")) {
		t.Errorf("Expected balance 100, got %s", balance.String())
	}
}

func TestApproveRequest_WithdrawalDebitsBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100.00")
	request := createPendingRequest(t, service, 1, models.RequestWithdrawal, "40.00")

	approved, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: request.Id, AdminId: 42})
	if err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Errorf("Expected status approved, got %s", approved.Status)
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "60")) {
		t.Errorf("Expected balance 60, got %s", balance.String())
	}
}

func TestApproveRequest_SecondDecisionFails(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	request := createPendingRequest(t, service, 1, models.RequestDeposit, "100")

	if _, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: request.Id}); err != nil {
		t.Fatalf("First approve failed: %v", err)
	}

	_, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: request.Id})
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed on second approve, got: %v", err)
	}

	_, err = service.RejectRequest(ctx, store.DecideParams{RequestId: request.Id})
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed on reject after approve, got: %v", err)
	}

	// The credit must have happened exactly once
	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "100")) {
		t.Errorf("Expected balance 100, got %s", balance.String())
	}
}

func TestApproveRequest_ConcurrentAdminsApplyOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	request := createPendingRequest(t, service, 1, models.RequestDeposit, "100")

	const admins = 10
	var wg sync.WaitGroup
	errs := make(chan error, admins)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(adminId int64) {
			defer wg.Done()
			_, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: request.Id, AdminId: adminId})
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrAlreadyProcessed):
			conflicts++
		default:
			t.Fatalf("Unexpected error from concurrent approve: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Expected exactly 1 successful approval, got %d", successes)
	}
	if conflicts != admins-1 {
		t.Errorf("Expected %d conflicts, got %d", admins-1, conflicts)
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "100")) {
		t.Errorf("Expected balance credited once (100), got %s", balance.String())
	}
}

func TestApproveRequest_WithdrawalInsufficientAutoRejects(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100")
	request := createPendingRequest(t, service, 1, models.RequestWithdrawal, "40")

	// Balance drains between submission and review
	if _, err := service.Adjust(ctx, store.AdjustParams{
		UserId: 1, Amount: mustDecimal(t, "-70"), Kind: "bet_stake",
	}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	rejected, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: request.Id, AdminId: 42})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got: %v", err)
	}
	if rejected == nil {
		t.Fatal("Expected the auto-rejected request to be returned")
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("Expected status rejected, got %s", rejected.Status)
	}
	if rejected.AdminNote == "" {
		t.Errorf("Expected a system note on the auto-rejected request")
	}

	// Balance untouched by the failed approval
	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "30")) {
		t.Errorf("Expected balance 30, got %s", balance.String())
	}
}

func TestCreatePaymentRequest_WithdrawalValidatesBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "30")

	_, err := service.CreatePaymentRequest(context.Background(), store.PaymentRequestParams{
		UserId:   1,
		Kind:     models.RequestWithdrawal,
		Currency: "USDT",
		Amount:   mustDecimal(t, "40"),
		Address:  "TTestAddress",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds at submission, got: %v", err)
	}
}

func TestRejectRequest_NoBalanceChange(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	fundTestUser(t, service, 1, "100")
	request := createPendingRequest(t, service, 1, models.RequestWithdrawal, "40")

	rejected, err := service.RejectRequest(ctx, store.DecideParams{RequestId: request.Id, Note: "address mismatch"})
	if err != nil {
		t.Fatalf("RejectRequest failed: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("Expected status rejected, got %s", rejected.Status)
	}

	balance, err := service.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "100")) {
		t.Errorf("Expected balance 100, got %s", balance.String())
	}
}

func TestListPendingRequests_OldestFirst(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, 1)
	first := createPendingRequest(t, service, 1, models.RequestDeposit, "10")
	second := createPendingRequest(t, service, 1, models.RequestDeposit, "20")

	if _, err := service.ApproveRequest(ctx, store.DecideParams{RequestId: first.Id}); err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}

	pending, err := service.ListPendingRequests(ctx)
	if err != nil {
		t.Fatalf("ListPendingRequests failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending request, got %d", len(pending))
	}
	if pending[0].Id != second.Id {
		t.Errorf("Expected request %d, got %d", second.Id, pending[0].Id)
	}
}
