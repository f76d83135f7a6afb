package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNoActiveFlow = errors.New("no active flow")

// FlowKind names the multi-step conversations a user can be in.
type FlowKind string

const (
	FlowDeposit    FlowKind = "deposit"
	FlowWithdrawal FlowKind = "withdrawal"
	FlowBet        FlowKind = "bet"
)

// Steps within flows. Not every step applies to every kind.
type Step string

const (
	StepSelectCurrency Step = "select_currency"
	StepAwaitProof     Step = "await_proof"
	StepAwaitAmount    Step = "await_amount"
	StepAwaitAddress   Step = "await_address"
	StepConfirm        Step = "confirm"
	StepSelectBetType  Step = "select_bet_type"
	StepAwaitSelection Step = "await_selection"
	StepAwaitStake     Step = "await_stake"
)

// Flow is one in-progress conversation. Data accumulates the answers
// collected so far (currency, amount, proof ref, ...).
type Flow struct {
	UserId    int64
	Kind      FlowKind
	Step      Step
	Data      map[string]string
	StartedAt time.Time
	UpdatedAt time.Time
}

func (f *Flow) clone() *Flow {
	data := make(map[string]string, len(f.Data))
	for k, v := range f.Data {
		data[k] = v
	}
	out := *f
	out.Data = data
	return &out
}

// Tracker holds at most one active flow per user, expiring flows that
// sit idle past the timeout. All state is in memory: a restart simply
// asks users to start over, which is acceptable for chat conversations.
type Tracker struct {
	mu          sync.Mutex
	flows       map[int64]*Flow
	idleTimeout time.Duration

	// now is replaceable in tests
	now func() time.Time
}

func NewTracker(idleTimeout time.Duration) *Tracker {
	return &Tracker{
		flows:       make(map[int64]*Flow),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Begin starts a flow for the user. Any flow already active is
// abandoned and returned so the caller can tell the user.
func (t *Tracker) Begin(userId int64, kind FlowKind, step Step) (flow *Flow, abandoned *Flow) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.activeLocked(userId); ok {
		abandoned = existing.clone()
	}

	now := t.now()
	flow = &Flow{
		UserId:    userId,
		Kind:      kind,
		Step:      step,
		Data:      make(map[string]string),
		StartedAt: now,
		UpdatedAt: now,
	}
	t.flows[userId] = flow

	if abandoned != nil {
		zap.L().Info("Flow replaced",
			zap.Int64("user_id", userId),
			zap.String("abandoned", string(abandoned.Kind)),
			zap.String("started", string(kind)))
	}
	return flow.clone(), abandoned
}

// Active returns the user's current flow, expiring it lazily first.
func (t *Tracker) Active(userId int64) (*Flow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	flow, ok := t.activeLocked(userId)
	if !ok {
		return nil, false
	}
	return flow.clone(), true
}

// Advance moves the user's flow to the next step, merging any collected
// data. The idle clock resets on every advance.
func (t *Tracker) Advance(userId int64, step Step, data map[string]string) (*Flow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	flow, ok := t.activeLocked(userId)
	if !ok {
		return nil, ErrNoActiveFlow
	}

	flow.Step = step
	flow.UpdatedAt = t.now()
	for k, v := range data {
		flow.Data[k] = v
	}
	return flow.clone(), nil
}

// Cancel removes the user's flow, returning it if there was one.
func (t *Tracker) Cancel(userId int64) (*Flow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	flow, ok := t.activeLocked(userId)
	if !ok {
		return nil, false
	}
	delete(t.flows, userId)
	return flow, true
}

// Sweep drops every expired flow and reports how many were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idleTimeout)
	swept := 0
	for userId, flow := range t.flows {
		if flow.UpdatedAt.Before(cutoff) {
			delete(t.flows, userId)
			swept++
		}
	}

	if swept > 0 {
		zap.L().Debug("Swept expired flows",
			zap.Int("swept", swept),
			zap.Int("remaining", len(t.flows)))
	}
	return swept
}

// activeLocked returns the flow if present and fresh, deleting it when
// expired. Callers hold t.mu.
func (t *Tracker) activeLocked(userId int64) (*Flow, bool) {
	flow, ok := t.flows[userId]
	if !ok {
		return nil, false
	}
	if t.now().Sub(flow.UpdatedAt) > t.idleTimeout {
		delete(t.flows, userId)
		zap.L().Debug("Flow expired", zap.Int64("user_id", userId), zap.String("kind", string(flow.Kind)))
		return nil, false
	}
	return flow, true
}
