package session

import (
	"errors"
	"testing"
	"time"
)

func newTestTracker(timeout time.Duration) (*Tracker, *time.Time) {
	tracker := NewTracker(timeout)
	now := time.Now()
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func TestBegin_OneFlowPerUser(t *testing.T) {
	tracker, _ := newTestTracker(10 * time.Minute)

	first, abandoned := tracker.Begin(1, FlowDeposit, StepSelectCurrency)
	if abandoned != nil {
		t.Errorf("Expected no abandoned flow on first begin")
	}
	if first.Kind != FlowDeposit || first.Step != StepSelectCurrency {
		t.Errorf("Unexpected flow: %+v", first)
	}

	second, abandoned := tracker.Begin(1, FlowBet, StepSelectBetType)
	if abandoned == nil {
		t.Fatal("Expected the deposit flow to be reported as abandoned")
	}
	if abandoned.Kind != FlowDeposit {
		t.Errorf("Expected abandoned deposit flow, got %s", abandoned.Kind)
	}
	if second.Kind != FlowBet {
		t.Errorf("Expected active bet flow, got %s", second.Kind)
	}

	active, ok := tracker.Active(1)
	if !ok || active.Kind != FlowBet {
		t.Errorf("Expected the bet flow to be active, got %+v ok=%v", active, ok)
	}
}

func TestBegin_IndependentUsers(t *testing.T) {
	tracker, _ := newTestTracker(10 * time.Minute)

	tracker.Begin(1, FlowDeposit, StepSelectCurrency)
	tracker.Begin(2, FlowWithdrawal, StepAwaitAmount)

	first, ok := tracker.Active(1)
	if !ok || first.Kind != FlowDeposit {
		t.Errorf("User 1 should still be in deposit flow")
	}
	second, ok := tracker.Active(2)
	if !ok || second.Kind != FlowWithdrawal {
		t.Errorf("User 2 should still be in withdrawal flow")
	}
}

func TestAdvance_AccumulatesData(t *testing.T) {
	tracker, _ := newTestTracker(10 * time.Minute)

	tracker.Begin(1, FlowDeposit, StepSelectCurrency)

	if _, err := tracker.Advance(1, StepAwaitProof, map[string]string{"currency": "USDT"}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	flow, err := tracker.Advance(1, StepAwaitAmount, map[string]string{"proof_ref": "photo-99"})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if flow.Step != StepAwaitAmount {
		t.Errorf("Expected step await_amount, got %s", flow.Step)
	}
	if flow.Data["currency"] != "USDT" || flow.Data["proof_ref"] != "photo-99" {
		t.Errorf("Expected accumulated data, got %v", flow.Data)
	}
}

func TestAdvance_NoActiveFlow(t *testing.T) {
	tracker, _ := newTestTracker(10 * time.Minute)

	_, err := tracker.Advance(1, StepAwaitAmount, nil)
	if !errors.Is(err, ErrNoActiveFlow) {
		t.Fatalf("Expected ErrNoActiveFlow, got %v", err)
	}
}

func TestActive_LazyExpiry(t *testing.T) {
	tracker, now := newTestTracker(10 * time.Minute)

	tracker.Begin(1, FlowDeposit, StepSelectCurrency)

	*now = now.Add(9 * time.Minute)
	if _, ok := tracker.Active(1); !ok {
		t.Fatal("Flow should still be active inside the timeout")
	}

	// Active refreshes nothing; only Advance resets the idle clock
	*now = now.Add(2 * time.Minute)
	if _, ok := tracker.Active(1); ok {
		t.Fatal("Flow should have expired")
	}

	_, err := tracker.Advance(1, StepAwaitAmount, nil)
	if !errors.Is(err, ErrNoActiveFlow) {
		t.Fatalf("Expected ErrNoActiveFlow after expiry, got %v", err)
	}
}

func TestAdvance_ResetsIdleClock(t *testing.T) {
	tracker, now := newTestTracker(10 * time.Minute)

	tracker.Begin(1, FlowDeposit, StepSelectCurrency)

	*now = now.Add(9 * time.Minute)
	if _, err := tracker.Advance(1, StepAwaitProof, nil); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	*now = now.Add(9 * time.Minute)
	if _, ok := tracker.Active(1); !ok {
		t.Fatal("Flow should still be active after the advance reset the clock")
	}
}

func TestCancel(t *testing.T) {
	tracker, _ := newTestTracker(10 * time.Minute)

	if _, ok := tracker.Cancel(1); ok {
		t.Error("Cancel with no flow should report false")
	}

	tracker.Begin(1, FlowBet, StepSelectBetType)
	cancelled, ok := tracker.Cancel(1)
	if !ok || cancelled.Kind != FlowBet {
		t.Errorf("Expected cancelled bet flow, got %+v ok=%v", cancelled, ok)
	}
	if _, ok := tracker.Active(1); ok {
		t.Error("Flow should be gone after cancel")
	}
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	tracker, now := newTestTracker(10 * time.Minute)

	tracker.Begin(1, FlowDeposit, StepSelectCurrency)

	*now = now.Add(6 * time.Minute)
	tracker.Begin(2, FlowBet, StepSelectBetType)

	*now = now.Add(5 * time.Minute)
	if swept := tracker.Sweep(); swept != 1 {
		t.Errorf("Expected 1 swept flow, got %d", swept)
	}

	if _, ok := tracker.Active(1); ok {
		t.Error("User 1's flow should have been swept")
	}
	if _, ok := tracker.Active(2); !ok {
		t.Error("User 2's flow should have survived the sweep")
	}
}
